package numbering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientReserve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/numbers/reserve", r.URL.Path)
		var req reserveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, TypeReturnNote, req.DocumentType)
		_ = json.NewEncoder(w).Encode(reserveResponse{Number: "RET-2024-0007"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	number, err := client.Reserve(context.Background(), TypeReturnNote)
	require.NoError(t, err)
	require.Equal(t, "RET-2024-0007", number)
}

func TestClientReserveRejectsEmptyNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(reserveResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Reserve(context.Background(), TypePurchaseOrder)
	require.Error(t, err)
}

func TestClientRelease(t *testing.T) {
	var released string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/numbers/release", r.URL.Path)
		var req releaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		released = req.Number
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	require.NoError(t, client.Release(context.Background(), "BL-2024-0099"))
	require.Equal(t, "BL-2024-0099", released)
}
