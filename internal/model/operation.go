package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Operation kinds as reported by the indexing API.
const (
	KindTransaction = "transaction"
	KindOrigination = "origination"
)

// Bigmap diff actions.
const (
	DiffActionAllocate  = "allocate"
	DiffActionAddKey    = "add_key"
	DiffActionUpdateKey = "update_key"
	DiffActionRemoveKey = "remove_key"
)

// Alias is an address with an optional human-readable alias.
type Alias struct {
	Address string `json:"address"`
	Alias   string `json:"alias,omitempty"`
}

// Parameter is the call payload of a transaction: the entrypoint name and
// the humanized value tree as delivered by the indexing API.
type Parameter struct {
	Entrypoint string          `json:"entrypoint"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// ValueString returns the parameter value when it is a plain JSON string.
func (p *Parameter) ValueString() (string, bool) {
	if p == nil || len(p.Value) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(p.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// ValueField resolves a dotted path through an object-valued parameter and
// returns the string at that path. Missing segments and non-string leaves
// report not-found instead of failing.
func (p *Parameter) ValueField(path string) (string, bool) {
	if p == nil {
		return "", false
	}
	return resolveStringPath(p.Value, path)
}

// DiffContent is the key/value pair of one bigmap mutation.
type DiffContent struct {
	Hash  string          `json:"hash,omitempty"`
	Key   json.RawMessage `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// KeyString returns the key when it is a plain JSON string. Object keys
// report not-found; no coercion is applied.
func (c DiffContent) KeyString() (string, bool) {
	return rawString(c.Key)
}

// ValueString returns the value when it is a plain JSON string.
func (c DiffContent) ValueString() (string, bool) {
	return rawString(c.Value)
}

// ValueField resolves a dotted path through an object-shaped value.
func (c DiffContent) ValueField(path string) (string, bool) {
	return resolveStringPath(c.Value, path)
}

// BigmapDiff is one point mutation of a contract's bigmap storage.
type BigmapDiff struct {
	Bigmap  int64       `json:"bigmap"`
	Path    string      `json:"path"`
	Action  string      `json:"action"`
	Content DiffContent `json:"content"`
}

// Operation is one recorded on-chain action (contract call or contract
// origination) as fetched from the indexing API. It is read-only after
// decoding; the pipeline never mutates it.
type Operation struct {
	Kind               string       `json:"type"`
	ID                 int64        `json:"id"`
	Level              int64        `json:"level"`
	Timestamp          time.Time    `json:"timestamp"`
	Hash               string       `json:"hash"`
	Counter            int64        `json:"counter"`
	Nonce              *int64       `json:"nonce,omitempty"`
	Sender             *Alias       `json:"sender,omitempty"`
	Target             *Alias       `json:"target,omitempty"`
	OriginatedContract *Alias       `json:"originatedContract,omitempty"`
	Amount             int64        `json:"amount,omitempty"`
	Parameter          *Parameter   `json:"parameter,omitempty"`
	Status             string       `json:"status,omitempty"`
	Diffs              []BigmapDiff `json:"diffs,omitempty"`
}

// Entrypoint returns the called entrypoint, empty when the operation
// carries no parameter.
func (o *Operation) Entrypoint() string {
	if o.Parameter == nil {
		return ""
	}
	return o.Parameter.Entrypoint
}

// TargetAddress returns the target contract address, empty when absent.
func (o *Operation) TargetAddress() string {
	if o.Target == nil {
		return ""
	}
	return o.Target.Address
}

// SenderAddress returns the sender address, empty when absent.
func (o *Operation) SenderAddress() string {
	if o.Sender == nil {
		return ""
	}
	return o.Sender.Address
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func resolveStringPath(raw json.RawMessage, path string) (string, bool) {
	if len(raw) == 0 || path == "" {
		return "", false
	}

	current := raw
	for _, segment := range strings.Split(path, ".") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return "", false
		}
		next, ok := obj[segment]
		if !ok {
			return "", false
		}
		current = next
	}

	return rawString(current)
}
