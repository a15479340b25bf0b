package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/pattern"
	"github.com/oldominion/indexer/internal/schema"
)

func testOp(id int64) model.Operation {
	return model.Operation{
		Kind:      model.KindTransaction,
		ID:        id,
		Level:     1500123,
		Timestamp: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
		Hash:      fmt.Sprintf("op%dHashHashHashHashHashHashHashHash", id),
		Counter:   10000 + id,
		Sender:    &model.Alias{Address: "tz1SenderSenderSenderSenderSenderSen"},
		Target:    &model.Alias{Address: "KT1MarketMarketMarketMarketMarketMar"},
		Parameter: &model.Parameter{Entrypoint: "collect"},
	}
}

func acceptAll() pattern.Pattern {
	return pattern.Pattern{"entrypoint": "collect"}
}

func singlePayloadHandler(handlerType string) Handler {
	return Handler{
		Source: model.KindTransaction,
		Type:   handlerType,
		Accept: acceptAll(),
		Schema: schema.Schema{Required: []string{"value"}},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			return []model.Payload{{"value": "ok"}}, nil
		},
	}
}

func TestDispatchIsolation(t *testing.T) {
	rejecting := Handler{
		Source: model.KindTransaction,
		Type:   "REJECTING",
		Accept: acceptAll(),
		Schema: schema.Schema{Required: []string{"value"}},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			return nil, fmt.Errorf("currency %q: %w", "usd", ErrUnsupported)
		},
	}

	registry, err := NewRegistry(rejecting, singlePayloadHandler("SUCCEEDING"))
	require.NoError(t, err)

	d := NewDispatcher(registry, 4, nil)
	result, err := d.Dispatch(context.Background(), []model.Operation{testOp(1)})
	require.NoError(t, err)

	require.Len(t, result.Events, 1, "the successful handler must still emit")
	assert.Equal(t, "SUCCEEDING", result.Events[0].Type)

	require.Len(t, result.Failures, 1, "the rejection must be reported, not swallowed")
	assert.Equal(t, FailureUnsupported, result.Failures[0].Kind)
	assert.Equal(t, "REJECTING", result.Failures[0].HandlerType)
}

func TestDispatchSourceKindScoping(t *testing.T) {
	txHandler := singlePayloadHandler("TX_ONLY")
	origHandler := Handler{
		Source: model.KindOrigination,
		Type:   "ORIG_ONLY",
		Accept: pattern.Pattern{},
		Schema: schema.Schema{Required: []string{"value"}},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			return []model.Payload{{"value": "orig"}}, nil
		},
	}

	registry, err := NewRegistry(txHandler, origHandler)
	require.NoError(t, err)

	orig := model.Operation{
		Kind:    model.KindOrigination,
		ID:      77,
		Hash:    "opOrigHashHashHashHashHashHashHashHa",
		Counter: 4242,
	}

	d := NewDispatcher(registry, 1, nil)
	result, err := d.Dispatch(context.Background(), []model.Operation{orig})
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, "ORIG_ONLY", result.Events[0].Type)
	assert.Empty(t, result.Failures)
}

func TestDispatchSubIndexedEvents(t *testing.T) {
	multi := Handler{
		Source: model.KindTransaction,
		Type:   "MULTI",
		Accept: acceptAll(),
		Schema: schema.Schema{Required: []string{"n"}},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			return []model.Payload{{"n": "0"}, {"n": "1"}, {"n": "2"}}, nil
		},
	}

	registry, err := NewRegistry(multi)
	require.NoError(t, err)

	d := NewDispatcher(registry, 1, nil)
	result, err := d.Dispatch(context.Background(), []model.Operation{testOp(9)})
	require.NoError(t, err)

	require.Len(t, result.Events, 3)
	ids := map[string]struct{}{}
	for _, event := range result.Events {
		ids[event.ID] = struct{}{}
	}
	assert.Len(t, ids, 3, "sub-indexed events must get distinct ids")

	// Re-dispatching the same operation reproduces the same ids.
	again, err := d.Dispatch(context.Background(), []model.Operation{testOp(9)})
	require.NoError(t, err)
	require.Len(t, again.Events, 3)
	for i := range again.Events {
		assert.Equal(t, result.Events[i].ID, again.Events[i].ID)
	}
}

func TestDispatchSchemaViolationSurfaces(t *testing.T) {
	drifted := Handler{
		Source: model.KindTransaction,
		Type:   "DRIFTED",
		Accept: acceptAll(),
		Schema: schema.Schema{Required: []string{"ask_id", "seller_address"}},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			return []model.Payload{{"ask_id": "5"}}, nil
		},
	}

	registry, err := NewRegistry(drifted)
	require.NoError(t, err)

	d := NewDispatcher(registry, 1, nil)
	result, err := d.Dispatch(context.Background(), []model.Operation{testOp(3)})
	require.NoError(t, err)

	assert.Empty(t, result.Events)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, FailureSchema, result.Failures[0].Kind)

	var violation *schema.ViolationError
	require.ErrorAs(t, result.Failures[0].Err, &violation)
	assert.Equal(t, []string{"seller_address"}, violation.Missing)
}

func TestDispatchMalformedOperation(t *testing.T) {
	registry, err := NewRegistry(singlePayloadHandler("NEEDS_IDENTITY"))
	require.NoError(t, err)

	op := testOp(5)
	op.Hash = ""

	d := NewDispatcher(registry, 1, nil)
	result, err := d.Dispatch(context.Background(), []model.Operation{op})
	require.NoError(t, err)

	assert.Empty(t, result.Events)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, FailureMalformed, result.Failures[0].Kind)
}

func TestDispatchMalformedOperationMultiPayload(t *testing.T) {
	multi := Handler{
		Source: model.KindTransaction,
		Type:   "MULTI",
		Accept: acceptAll(),
		Schema: schema.Schema{Required: []string{"n"}},
		Exec: func(op *model.Operation) ([]model.Payload, error) {
			return []model.Payload{{"n": "0"}, {"n": "1"}, {"n": "2"}}, nil
		},
	}

	registry, err := NewRegistry(multi)
	require.NoError(t, err)

	op := testOp(6)
	op.Hash = ""

	d := NewDispatcher(registry, 1, nil)
	result, err := d.Dispatch(context.Background(), []model.Operation{op})
	require.NoError(t, err)

	assert.Empty(t, result.Events)
	require.Len(t, result.Failures, 1, "identity failure is per unit, not per payload")
	assert.Equal(t, FailureMalformed, result.Failures[0].Kind)
	assert.Equal(t, "MULTI", result.Failures[0].HandlerType)
}

func TestDispatchParallelBatch(t *testing.T) {
	registry, err := NewRegistry(singlePayloadHandler("PARALLEL"))
	require.NoError(t, err)

	ops := make([]model.Operation, 0, 200)
	for i := int64(1); i <= 200; i++ {
		ops = append(ops, testOp(i))
	}

	d := NewDispatcher(registry, 16, nil)
	result, err := d.Dispatch(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, result.Events, 200, "batch completion must cover every dispatched unit")
	ids := map[string]struct{}{}
	for _, event := range result.Events {
		ids[event.ID] = struct{}{}
	}
	assert.Len(t, ids, 200)
}

func TestNewRegistryRejectsBadHandlers(t *testing.T) {
	_, err := NewRegistry(Handler{Source: model.KindTransaction, Type: "", Exec: func(*model.Operation) ([]model.Payload, error) { return nil, nil }})
	assert.Error(t, err)

	_, err = NewRegistry(Handler{Source: "block", Type: "X", Exec: func(*model.Operation) ([]model.Payload, error) { return nil, nil }})
	assert.Error(t, err)

	_, err = NewRegistry(Handler{Source: model.KindTransaction, Type: "X", Exec: nil})
	assert.Error(t, err)

	_, err = NewRegistry(singlePayloadHandler("DUP"), singlePayloadHandler("DUP"))
	assert.Error(t, err)
}
