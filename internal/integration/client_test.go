package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientIncreaseStock(t *testing.T) {
	var gotPath, gotKey string
	var gotBody stockIncreasePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"}, nil, nil)
	require.NoError(t, client.IncreaseStock(context.Background(), "P1", 3))
	require.Equal(t, "/stock/increase", gotPath)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, stockIncreasePayload{ProductRef: "P1", Qty: 3}, gotBody)
}

func TestClientSetOrderStatusAndNote(t *testing.T) {
	paths := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL}, nil, nil)
	ctx := context.Background()
	require.NoError(t, client.SetOrderStatus(ctx, "CMD-42", "refunded"))
	require.NoError(t, client.AddOrderNote(ctx, "CMD-42", "note", false))
	require.Equal(t, []string{"/orders/CMD-42/status", "/orders/CMD-42/notes"}, paths)
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL}, nil, nil)
	err := client.IncreaseStock(context.Background(), "P1", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestClientTimeoutBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil, nil)
	err := client.IncreaseStock(context.Background(), "P1", 1)
	require.Error(t, err)
}
