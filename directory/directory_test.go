package directory_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NomcciDubs/nomcci-wallet/directory"
	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

func TestClient_DisplayName(t *testing.T) {
	// GIVEN: A directory serving a display name
	// WHEN: Resolving by owner id
	// THEN: The trimmed body comes back

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/wallet/get-user-by-id/owner-1", r.URL.Path)
		w.Write([]byte("Alice A\n"))
	}))
	defer srv.Close()

	c := directory.NewClient(srv.URL)
	name, err := c.DisplayName(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice A", name)
}

func TestClient_OwnerIDByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/wallet/get-id-by-email", r.URL.Path)
		assert.Equal(t, "bob@example.com", r.URL.Query().Get("email"))
		w.Write([]byte("owner-bob"))
	}))
	defer srv.Close()

	c := directory.NewClient(srv.URL)
	id, err := c.OwnerIDByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "owner-bob", id)
}

func TestClient_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := directory.NewClient(srv.URL,
		directory.WithTokenSource(func() (string, error) { return "secret", nil }))
	_, err := c.DisplayName(context.Background(), "owner-1")
	require.NoError(t, err)
}

func TestClient_Non200_WrappedAsExternalLookup(t *testing.T) {
	// GIVEN: A directory answering 500
	// WHEN: Resolving
	// THEN: The failure is identifiable as an external-lookup error, so
	//       callers can degrade instead of surfacing it

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := directory.NewClient(srv.URL)
	_, err := c.DisplayName(context.Background(), "owner-1")
	assert.ErrorIs(t, err, wallet.ErrExternalLookup)
}

func TestClient_Unreachable_WrappedAsExternalLookup(t *testing.T) {
	c := directory.NewClient("http://127.0.0.1:1")
	_, err := c.DisplayName(context.Background(), "owner-1")
	assert.ErrorIs(t, err, wallet.ErrExternalLookup)
}
