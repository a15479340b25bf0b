package handler

import (
	"fmt"

	"github.com/oldominion/indexer/internal/bigmap"
	"github.com/oldominion/indexer/internal/dispatch"
	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/pattern"
	"github.com/oldominion/indexer/internal/schema"
)

// ContractOrigination emits an event when a new FA2 token contract is
// originated. FA2 contracts are recognized by the ledger bigmap their
// origination allocates; originations without one produce no event.
func ContractOrigination() dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindOrigination,
		Type:   "FA2_ORIGINATION",
		Accept: pattern.Pattern{},
		Schema: schema.Schema{
			Required: []string{"contract_address", "creator_address"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			if op.OriginatedContract == nil || op.OriginatedContract.Address == "" {
				return nil, fmt.Errorf("origination without originated contract")
			}

			ledger := bigmap.Find(op.Diffs, bigmap.Query{
				Path:    "ledger",
				Actions: []string{model.DiffActionAllocate, model.DiffActionAddKey},
			})
			if ledger == nil {
				return nil, nil
			}

			return []model.Payload{{
				"contract_address": op.OriginatedContract.Address,
				"creator_address":  op.SenderAddress(),
			}}, nil
		},
	}
}
