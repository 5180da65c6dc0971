/*
handlers.go - HTTP handlers for the wallet ledger

PATTERN:
  Each handler:
  1. Parses and validates input
  2. Calls the ledger service
  3. Serializes the response
  4. Maps failures to HTTP status

ERROR HANDLING:
  - 400: invalid amount, insufficient funds, same-account transfer
  - 404: unknown account
  - 409: owner already has an account
  - 500: everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *wallet.Service
	Logger  *zap.Logger
}

// NewHandler creates a handler around the ledger service.
func NewHandler(svc *wallet.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Logger: logger}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount opens an account for an owner.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.OwnerID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("owner_id is required"))
		return
	}

	acct, err := h.Service.CreateAccount(r.Context(), req.OwnerID, req.Currency)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toAccountDTO(acct))
}

// GetAccount returns an account without recalculating.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Service.Account(r.Context(), wallet.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// GetBalance recalculates and returns the authoritative balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Service.Balance(r.Context(), wallet.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// =============================================================================
// OPERATION HANDLERS
// =============================================================================

// Deposit credits the account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	acct, err := h.Service.Deposit(r.Context(), wallet.AccountID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// Withdraw debits the account.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	acct, err := h.Service.Withdraw(r.Context(), wallet.AccountID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// Transfer moves funds between two accounts. The destination is either an
// explicit account id or an email resolved through the directory.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.FromAccountID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("from_account_id is required"))
		return
	}

	var (
		res wallet.TransferResult
		err error
	)
	switch {
	case req.ToAccountID != "":
		res, err = h.Service.Transfer(r.Context(),
			wallet.AccountID(req.FromAccountID), wallet.AccountID(req.ToAccountID), req.Amount)
	case req.ToEmail != "":
		res, err = h.Service.TransferByEmail(r.Context(),
			wallet.AccountID(req.FromAccountID), req.ToEmail, req.Amount)
	default:
		h.writeError(w, http.StatusBadRequest, errors.New("to_account_id or to_email is required"))
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TransferDTO{From: toAccountDTO(res.From), To: toAccountDTO(res.To)})
}

// =============================================================================
// HISTORY HANDLER
// =============================================================================

// GetHistory serves the merged live+archived transaction history.
// Query params: page, size, sortBy, start, end (RFC3339).
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := wallet.HistoryQuery{SortBy: r.URL.Query().Get("sortBy")}

	if v := r.URL.Query().Get("page"); v != "" {
		q.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("size"); v != "" {
		q.Size, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, errors.New("invalid start timestamp"))
			return
		}
		q.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, errors.New("invalid end timestamp"))
			return
		}
		q.End = t
	}

	page, err := h.Service.History(r.Context(), wallet.AccountID(chi.URLParam(r, "id")), q)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerArchive recalculates one account, compacting anything that aged
// out of the retention window.
func (h *Handler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Service.Balance(r.Context(), wallet.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, ErrorDTO{Error: err.Error()})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case wallet.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, wallet.ErrAccountExists):
		h.writeError(w, http.StatusConflict, err)
	case wallet.IsClientError(err):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.Logger.Error("internal error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
