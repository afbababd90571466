package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_ParsesDataEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/docs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"section":"main","documents":[]}]}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL)
	require.NoError(t, err)

	resp, err := api.Get("/api/docs")
	require.NoError(t, err)

	var groups []SectionGroup
	require.NoError(t, json.Unmarshal(resp.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "main", groups[0].Section)
}

func TestAPIClient_Get_MapsErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"document not found"}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL)
	require.NoError(t, err)

	_, err = api.Get("/api/docs/missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "document not found", apiErr.Message)
}

func TestAPIClient_PostStream_CopiesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "how do I install?", req.Messages[0].Content)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Run make install."))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	req := ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "how do I install?"}}}
	require.NoError(t, api.PostStream("/api/chat", req, &out))
	assert.Equal(t, "Run make install.", out.String())
}

func TestAPIClient_PostStream_RateLimitedIncludesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Rate limit exceeded"}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	req := ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}}
	err = api.PostStream("/api/chat", req, &out)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "42", apiErr.RetryAfter)
	assert.Contains(t, apiErr.Error(), "retry after 42s")
	assert.Empty(t, out.String())
}

func TestAPIClient_TrimsTrailingSlash(t *testing.T) {
	api, err := NewAPIClientWithConfig("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", api.baseURL)
}
