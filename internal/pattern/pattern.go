// Package pattern evaluates declarative acceptance rules over operations.
package pattern

import "github.com/oldominion/indexer/internal/model"

// Pattern maps a semantic attribute name to the literal value it must have.
// An empty pattern matches every operation.
type Pattern map[string]string

// attributes is the fixed table resolving semantic names to operation
// fields. Adding a matchable attribute means adding one entry here.
var attributes = map[string]func(*model.Operation) (string, bool){
	"entrypoint": func(op *model.Operation) (string, bool) {
		if op.Parameter == nil {
			return "", false
		}
		return op.Parameter.Entrypoint, true
	},
	"target_address": func(op *model.Operation) (string, bool) {
		if op.Target == nil {
			return "", false
		}
		return op.Target.Address, true
	},
	"sender_address": func(op *model.Operation) (string, bool) {
		if op.Sender == nil {
			return "", false
		}
		return op.Sender.Address, true
	},
	"originated_contract_address": func(op *model.Operation) (string, bool) {
		if op.OriginatedContract == nil {
			return "", false
		}
		return op.OriginatedContract.Address, true
	},
	"status": func(op *model.Operation) (string, bool) {
		return op.Status, op.Status != ""
	},
}

// Matches reports whether every declared attribute of the pattern resolves
// to its expected value on the operation. An attribute that does not
// resolve (unknown name, absent field) fails that attribute rather than
// erroring.
func Matches(op *model.Operation, p Pattern) bool {
	if op == nil {
		return false
	}
	for name, want := range p {
		resolve, ok := attributes[name]
		if !ok {
			return false
		}
		got, ok := resolve(op)
		if !ok || got != want {
			return false
		}
	}
	return true
}
