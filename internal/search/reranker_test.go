package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRerankServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rerank", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPCrossEncoderScore(t *testing.T) {
	srv := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "soil carbon", req.Query)
		require.Len(t, req.Documents, 2)

		resp := rerankResponse{}
		resp.Results = append(resp.Results,
			struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			}{Index: 1, Score: 0.92},
			struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			}{Index: 0, Score: 0.31},
		)
		json.NewEncoder(w).Encode(resp)
	})

	enc, err := NewHTTPCrossEncoder(context.Background(), HTTPCrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer enc.Close()

	assert.True(t, enc.Available(context.Background()))

	scores, err := enc.Score(context.Background(), "soil carbon", []string{"doc one", "doc two"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 1, scores[0].Index)
	assert.InDelta(t, 0.92, scores[0].Score, 1e-9)
}

func TestHTTPCrossEncoderEmptyDocuments(t *testing.T) {
	srv := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	enc, err := NewHTTPCrossEncoder(context.Background(), HTTPCrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer enc.Close()

	scores, err := enc.Score(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestHTTPCrossEncoderServerError(t *testing.T) {
	srv := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	enc, err := NewHTTPCrossEncoder(context.Background(), HTTPCrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer enc.Close()

	_, err = enc.Score(context.Background(), "query", []string{"doc"})
	assert.Error(t, err)
}

func TestHTTPCrossEncoderInvalidIndex(t *testing.T) {
	srv := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := rerankResponse{}
		resp.Results = append(resp.Results, struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		}{Index: 7, Score: 0.5})
		json.NewEncoder(w).Encode(resp)
	})

	enc, err := NewHTTPCrossEncoder(context.Background(), HTTPCrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer enc.Close()

	_, err = enc.Score(context.Background(), "query", []string{"doc"})
	assert.Error(t, err)
}

func TestHTTPCrossEncoderHealthCheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPCrossEncoder(context.Background(), HTTPCrossEncoderConfig{Endpoint: srv.URL})
	assert.Error(t, err)
}

func TestHTTPCrossEncoderClosed(t *testing.T) {
	srv := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {})

	enc, err := NewHTTPCrossEncoder(context.Background(), HTTPCrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = enc.Score(context.Background(), "query", []string{"doc"})
	assert.Error(t, err)
	assert.False(t, enc.Available(context.Background()))
}
