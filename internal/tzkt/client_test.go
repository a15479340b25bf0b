package tzkt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldominion/indexer/internal/model"
)

func TestOperationsTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/operations/transactions", r.URL.Path)
		assert.Equal(t, "applied", r.URL.Query().Get("status"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "level": 100, "hash": "ooAAA", "counter": 7},
			{"id": 2, "level": 101, "hash": "ooBBB", "counter": 8}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	params := url.Values{}
	params.Set("status", "applied")
	params.Set("offset", "0")
	params.Set("limit", "2")

	ops, err := client.Operations(context.Background(), model.KindTransaction, params)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, int64(1), ops[0].ID)
	assert.Equal(t, model.KindTransaction, ops[0].Kind, "kind is stamped when the source omits it")
}

func TestOperationsOriginationsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/operations/originations", r.URL.Path)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ops, err := client.Operations(context.Background(), model.KindOrigination, nil)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestOperationsUnsupportedKind(t *testing.T) {
	client := NewClient("http://localhost:0")
	_, err := client.Operations(context.Background(), "block", nil)
	require.Error(t, err)
}

func TestOperationsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Operations(context.Background(), model.KindTransaction, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOperationsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Operations(context.Background(), model.KindTransaction, nil)
	require.Error(t, err)
}
