package handler

import (
	"fmt"

	"github.com/oldominion/indexer/internal/bigmap"
	"github.com/oldominion/indexer/internal/dispatch"
	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/pattern"
	"github.com/oldominion/indexer/internal/schema"
)

const henSwapsPath = "swaps"

// HenSwap emits a listing event when a seller opens a swap on the hen
// marketplace.
func HenSwap(cfg Config) dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindTransaction,
		Type:   "HEN_SWAP",
		Accept: pattern.Pattern{
			"entrypoint":     "swap",
			"target_address": cfg.HenMarketplace,
		},
		Schema: schema.Schema{
			Required: []string{"swap_id", "fa2_address", "token_id", "price", "seller_address"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			diff := bigmap.Find(op.Diffs, bigmap.Query{
				Bigmap:  bigmap.ID(cfg.HenSwapsBigmap),
				Path:    henSwapsPath,
				Actions: []string{model.DiffActionAddKey},
			})
			if diff == nil {
				return nil, fmt.Errorf("swap call without swaps add_key diff")
			}

			swapID, ok := diff.Content.KeyString()
			if !ok {
				return nil, fmt.Errorf("swaps diff key is not a string")
			}

			payload := model.Payload{
				"swap_id":        swapID,
				"fa2_address":    cfg.HenObjktsFA2,
				"seller_address": op.SenderAddress(),
			}
			copyValueFields(payload, diff.Content, map[string]string{
				"token_id": "objkt_id",
				"price":    "xtz_per_objkt",
				"amount":   "objkt_amount",
			})
			return []model.Payload{payload}, nil
		},
	}
}

// HenCollect emits a sale event when a buyer collects from a swap. The
// swap id is the call parameter; seller and terms come from the swaps
// bigmap diff the collect applies.
func HenCollect(cfg Config) dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindTransaction,
		Type:   "HEN_COLLECT",
		Accept: pattern.Pattern{
			"entrypoint":     "collect",
			"target_address": cfg.HenMarketplace,
		},
		Schema: schema.Schema{
			Required: []string{"swap_id", "buyer_address", "seller_address", "token_id", "price"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			swapID, ok := op.Parameter.ValueString()
			if !ok {
				swapID, ok = op.Parameter.ValueField("swap_id")
			}
			if !ok {
				return nil, fmt.Errorf("collect call without swap id parameter")
			}

			diff := bigmap.Find(op.Diffs, bigmap.Query{
				Bigmap:  bigmap.ID(cfg.HenSwapsBigmap),
				Path:    henSwapsPath,
				Actions: []string{model.DiffActionUpdateKey, model.DiffActionRemoveKey},
				Key:     bigmap.Key(swapID),
			})
			if diff == nil {
				return nil, fmt.Errorf("collect %s without matching swaps diff", swapID)
			}

			payload := model.Payload{
				"swap_id":       swapID,
				"fa2_address":   cfg.HenObjktsFA2,
				"buyer_address": op.SenderAddress(),
			}
			copyValueFields(payload, diff.Content, map[string]string{
				"seller_address": "issuer",
				"token_id":       "objkt_id",
				"price":          "xtz_per_objkt",
			})
			return []model.Payload{payload}, nil
		},
	}
}

// HenCancelSwap emits a cancellation event when a seller closes a swap.
func HenCancelSwap(cfg Config) dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindTransaction,
		Type:   "HEN_CANCEL_SWAP",
		Accept: pattern.Pattern{
			"entrypoint":     "cancel_swap",
			"target_address": cfg.HenMarketplace,
		},
		Schema: schema.Schema{
			Required: []string{"swap_id", "seller_address"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			swapID, ok := op.Parameter.ValueString()
			if !ok {
				return nil, fmt.Errorf("cancel_swap call without swap id parameter")
			}

			diff := bigmap.Find(op.Diffs, bigmap.Query{
				Bigmap:  bigmap.ID(cfg.HenSwapsBigmap),
				Path:    henSwapsPath,
				Actions: []string{model.DiffActionRemoveKey},
				Key:     bigmap.Key(swapID),
			})
			if diff == nil {
				return nil, fmt.Errorf("cancel_swap %s without remove_key diff", swapID)
			}

			return []model.Payload{{
				"swap_id":        swapID,
				"seller_address": op.SenderAddress(),
			}}, nil
		},
	}
}
