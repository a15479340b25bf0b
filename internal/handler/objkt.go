package handler

import (
	"fmt"

	"github.com/oldominion/indexer/internal/bigmap"
	"github.com/oldominion/indexer/internal/dispatch"
	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/pattern"
	"github.com/oldominion/indexer/internal/schema"
)

const objktAsksPath = "asks"

// ObjktAsk emits an event when a seller creates an ask on the objkt
// marketplace. The ask id and listing terms come from the add_key diff
// the call writes into the asks bigmap.
func ObjktAsk(cfg Config) dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindTransaction,
		Type:   "OBJKT_ASK",
		Accept: pattern.Pattern{
			"entrypoint":     "ask",
			"target_address": cfg.ObjktMarketplace,
		},
		Schema: schema.Schema{
			Required: []string{"ask_id", "fa2_address", "token_id", "price", "seller_address"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			diff := bigmap.Find(op.Diffs, bigmap.Query{
				Bigmap:  bigmap.ID(cfg.ObjktAsksBigmap),
				Path:    objktAsksPath,
				Actions: []string{model.DiffActionAddKey},
			})
			if diff == nil {
				return nil, fmt.Errorf("ask call without asks add_key diff")
			}

			askID, ok := diff.Content.KeyString()
			if !ok {
				return nil, fmt.Errorf("asks diff key is not a string")
			}

			currency, _ := diff.Content.ValueField("currency")
			if err := checkCurrency(currency); err != nil {
				return nil, err
			}

			payload := model.Payload{
				"ask_id":         askID,
				"seller_address": op.SenderAddress(),
			}
			copyValueFields(payload, diff.Content, map[string]string{
				"fa2_address": "fa2",
				"token_id":    "token_id",
				"price":       "price",
				"amount":      "amount",
			})
			return []model.Payload{payload}, nil
		},
	}
}

// ObjktFulfillAsk emits a sale event when a buyer fulfills an ask. The
// ask id is the call parameter; the listing terms come from the diff the
// fulfillment applies to the asks bigmap.
func ObjktFulfillAsk(cfg Config) dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindTransaction,
		Type:   "OBJKT_FULFILL_ASK",
		Accept: pattern.Pattern{
			"entrypoint":     "fulfill_ask",
			"target_address": cfg.ObjktMarketplace,
		},
		Schema: schema.Schema{
			Required: []string{"ask_id", "buyer_address", "seller_address", "fa2_address", "token_id", "price"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			askID, ok := op.Parameter.ValueString()
			if !ok {
				askID, ok = op.Parameter.ValueField("ask_id")
			}
			if !ok {
				return nil, fmt.Errorf("fulfill_ask call without ask id parameter")
			}

			diff := bigmap.Find(op.Diffs, bigmap.Query{
				Bigmap:  bigmap.ID(cfg.ObjktAsksBigmap),
				Path:    objktAsksPath,
				Actions: []string{model.DiffActionUpdateKey, model.DiffActionRemoveKey},
				Key:     bigmap.Key(askID),
			})
			if diff == nil {
				return nil, fmt.Errorf("fulfill_ask %s without matching asks diff", askID)
			}

			currency, _ := diff.Content.ValueField("currency")
			if err := checkCurrency(currency); err != nil {
				return nil, err
			}

			payload := model.Payload{
				"ask_id":        askID,
				"buyer_address": op.SenderAddress(),
			}
			copyValueFields(payload, diff.Content, map[string]string{
				"seller_address": "seller",
				"fa2_address":    "fa2",
				"token_id":       "token_id",
				"price":          "price",
			})
			return []model.Payload{payload}, nil
		},
	}
}

// ObjktRetractAsk emits a cancellation event when a seller retracts an
// ask. The retracted ask id is the call parameter and must match the
// remove_key diff on the asks bigmap.
func ObjktRetractAsk(cfg Config) dispatch.Handler {
	return dispatch.Handler{
		Source: model.KindTransaction,
		Type:   "OBJKT_RETRACT_ASK",
		Accept: pattern.Pattern{
			"entrypoint":     "retract_ask",
			"target_address": cfg.ObjktMarketplace,
		},
		Schema: schema.Schema{
			Required: []string{"ask_id", "seller_address"},
		},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			askID, ok := op.Parameter.ValueString()
			if !ok {
				return nil, fmt.Errorf("retract_ask call without ask id parameter")
			}

			diff := bigmap.Find(op.Diffs, bigmap.Query{
				Bigmap:  bigmap.ID(cfg.ObjktAsksBigmap),
				Path:    objktAsksPath,
				Actions: []string{model.DiffActionRemoveKey},
				Key:     bigmap.Key(askID),
			})
			if diff == nil {
				return nil, fmt.Errorf("retract_ask %s without remove_key diff", askID)
			}

			return []model.Payload{{
				"ask_id":         askID,
				"seller_address": op.SenderAddress(),
			}}, nil
		},
	}
}

// copyValueFields copies string fields out of a diff value into the
// payload, keyed by payload name. Fields absent from the value are
// skipped; schema validation decides whether that is a violation.
func copyValueFields(payload model.Payload, content model.DiffContent, fields map[string]string) {
	for name, path := range fields {
		if v, ok := content.ValueField(path); ok {
			payload[name] = v
		}
	}
}
