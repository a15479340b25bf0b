package model

import (
	"encoding/json"
	"testing"
)

const transactionJSON = `{
	"type": "transaction",
	"id": 123456789,
	"level": 1500123,
	"timestamp": "2021-03-01T12:00:00Z",
	"hash": "ooh4GREJfTTsNnaiBZHRLW1mg6BuLsmJhHjsusBXsyhf6zbUvLa",
	"counter": 11000001,
	"nonce": null,
	"sender": {"address": "tz1UBZUkXpKGhYsP5KtzDNqLLchwF4uHrGjw", "alias": "collector"},
	"target": {"address": "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn"},
	"amount": 1500000,
	"parameter": {
		"entrypoint": "collect",
		"value": {"swap_id": "523001", "objkt_amount": "1"}
	},
	"status": "applied",
	"diffs": [
		{
			"bigmap": 523,
			"path": "swaps",
			"action": "update_key",
			"content": {
				"key": "523001",
				"value": {"issuer": "tz1iSQxtDSy7R7PGC1W2mmDmjfMB5r4iD25i", "objkt_id": "42", "xtz_per_objkt": "1500000"}
			}
		}
	]
}`

func TestOperationDecode(t *testing.T) {
	var op Operation
	if err := json.Unmarshal([]byte(transactionJSON), &op); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if op.Kind != KindTransaction {
		t.Fatalf("kind mismatch: %s", op.Kind)
	}
	if op.ID != 123456789 || op.Level != 1500123 || op.Counter != 11000001 {
		t.Fatalf("numeric fields mismatch: %+v", op)
	}
	if op.Nonce != nil {
		t.Fatalf("null nonce must decode to nil")
	}
	if op.Entrypoint() != "collect" {
		t.Fatalf("entrypoint mismatch: %s", op.Entrypoint())
	}
	if op.TargetAddress() != "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn" {
		t.Fatalf("target mismatch: %s", op.TargetAddress())
	}

	swapID, ok := op.Parameter.ValueField("swap_id")
	if !ok || swapID != "523001" {
		t.Fatalf("parameter field lookup failed: %q %v", swapID, ok)
	}

	if len(op.Diffs) != 1 {
		t.Fatalf("expected one diff, got %d", len(op.Diffs))
	}
	key, ok := op.Diffs[0].Content.KeyString()
	if !ok || key != "523001" {
		t.Fatalf("diff key mismatch: %q %v", key, ok)
	}
	issuer, ok := op.Diffs[0].Content.ValueField("issuer")
	if !ok || issuer != "tz1iSQxtDSy7R7PGC1W2mmDmjfMB5r4iD25i" {
		t.Fatalf("diff value field mismatch: %q %v", issuer, ok)
	}
}

func TestAccessorsFailClosed(t *testing.T) {
	op := &Operation{}
	if op.Entrypoint() != "" || op.TargetAddress() != "" || op.SenderAddress() != "" {
		t.Fatalf("accessors on empty operation must return empty strings")
	}

	var p *Parameter
	if _, ok := p.ValueString(); ok {
		t.Fatalf("nil parameter value lookup must report not-found")
	}
	if _, ok := p.ValueField("x"); ok {
		t.Fatalf("nil parameter field lookup must report not-found")
	}

	withObject := &Parameter{Value: json.RawMessage(`{"a": {"b": "c"}}`)}
	if v, ok := withObject.ValueField("a.b"); !ok || v != "c" {
		t.Fatalf("nested lookup failed: %q %v", v, ok)
	}
	if _, ok := withObject.ValueField("a.missing"); ok {
		t.Fatalf("missing segment must report not-found")
	}
	if _, ok := withObject.ValueField("a"); ok {
		t.Fatalf("non-string leaf must report not-found")
	}
}
