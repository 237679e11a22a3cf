package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"khata/internal/core"
)

const dateLayout = "2006-01-02"

// contactResponse is the JSON shape of a contact record.
type contactResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	ContactType string `json:"contactType"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// transactionResponse is the JSON shape of a ledger row. Amount marshals as
// a JSON number.
type transactionResponse struct {
	ID              int64           `json:"id"`
	ContactID       int64           `json:"contactId"`
	Amount          json.RawMessage `json:"amount"`
	Type            string          `json:"type"`
	Details         string          `json:"details"`
	TransactionDate string          `json:"transactionDate"`
	PhotoFileName   string          `json:"photoFileName,omitempty"`
}

func toContactResponse(c core.Contact) contactResponse {
	resp := contactResponse{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		ContactType: string(c.ContactType),
		Email:       c.Email,
		Address:     c.Address,
		Notes:       c.Notes,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		ContactID:       t.ContactID,
		Amount:          json.RawMessage(t.Amount.String()),
		Type:            string(t.Type),
		Details:         t.Details,
		TransactionDate: t.TransactionDate.Format(dateLayout),
		PhotoFileName:   t.PhotoFileName,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto status codes:
// validation failures are 422 with field messages, missing records 404,
// anything else a logged 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// sanitize trims whitespace and strips control characters from form input.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
