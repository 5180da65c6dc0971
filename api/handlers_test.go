/*
handlers_test.go - HTTP-level tests

Exercises the full request path: router, handlers, service, in-memory
store. Focused on status-code mapping and response shapes.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NomcciDubs/nomcci-wallet/api"
	"github.com/NomcciDubs/nomcci-wallet/wallet"
	"github.com/NomcciDubs/nomcci-wallet/wallet/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := wallet.NewService(store.NewMemory())
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, nil), nil))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createAccount(t *testing.T, srv *httptest.Server, owner string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/accounts",
		map[string]string{"owner_id": owner})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func deposit(t *testing.T, srv *httptest.Server, accountID, amount string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/accounts/%s/deposit", srv.URL, accountID),
		map[string]string{"amount": amount})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

func TestCreateAccount_Endpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/accounts",
		map[string]string{"owner_id": "alice"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "alice", body["owner_id"])
	assert.Equal(t, "USD", body["currency"])

	// Second account for the same owner conflicts.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/accounts",
		map[string]string{"owner_id": "alice"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateAccount_MissingOwner_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAccount_Unknown_NotFound(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// OPERATION ENDPOINTS
// =============================================================================

func TestDepositWithdrawBalance_Endpoints(t *testing.T) {
	// GIVEN: An account credited 100 and debited 40
	// WHEN: Asking for the balance
	// THEN: 60

	srv := newTestServer(t)
	id := createAccount(t, srv, "alice")

	deposit(t, srv, id, "100")

	resp, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/accounts/%s/withdraw", srv.URL, id),
		map[string]string{"amount": "40"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "60", body["balance"])

	resp, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/accounts/%s/balance", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "60", body["balance"])
}

func TestDeposit_InvalidAmount_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/accounts/%s/deposit", srv.URL, id),
		map[string]string{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWithdraw_InsufficientFunds_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "alice")
	deposit(t, srv, id, "10")

	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/accounts/%s/withdraw", srv.URL, id),
		map[string]string{"amount": "10.01"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransfer_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	alice := createAccount(t, srv, "alice")
	bob := createAccount(t, srv, "bob")
	deposit(t, srv, alice, "100")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/transfers", map[string]string{
		"from_account_id": alice,
		"to_account_id":   bob,
		"amount":          "60",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	from := body["from"].(map[string]any)
	to := body["to"].(map[string]any)
	assert.Equal(t, "40", from["balance"])
	assert.Equal(t, "60", to["balance"])
}

func TestTransfer_MissingDestination_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	alice := createAccount(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/transfers", map[string]string{
		"from_account_id": alice,
		"amount":          "10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransfer_SameAccount_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	alice := createAccount(t, srv, "alice")
	deposit(t, srv, alice, "100")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/transfers", map[string]string{
		"from_account_id": alice,
		"to_account_id":   alice,
		"amount":          "10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// HISTORY ENDPOINT
// =============================================================================

func TestHistory_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "alice")
	deposit(t, srv, id, "100")
	deposit(t, srv, id, "50")

	resp, body := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/accounts/%s/history?page=0&size=1", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, float64(2), body["total_count"])
	lines := body["lines"].([]any)
	assert.Len(t, lines, 1)
}

func TestHistory_InvalidTimestamp_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/accounts/%s/history?start=not-a-time", srv.URL, id), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ADMIN ENDPOINT
// =============================================================================

func TestTriggerArchive_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "alice")
	deposit(t, srv, id, "25")

	resp, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/admin/accounts/%s/archive", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "25", body["balance"])
}
