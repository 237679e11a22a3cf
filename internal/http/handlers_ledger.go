package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"khata/internal/core"
	"khata/internal/services"
)

// maxReceiptMemory bounds the in-memory part of multipart parsing.
const maxReceiptMemory = 10 << 20

// handleLedgerView serves one contact's ledger page: the contact, its
// transactions newest first, and the running balance.
func (s *Server) handleLedgerView(w http.ResponseWriter, r *http.Request) {
	contactID, err := strconv.ParseInt(r.URL.Query().Get("contactId"), 10, 64)
	if err != nil || contactID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid contactId")
		return
	}

	view, err := s.ledger.View(r.Context(), contactID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	txs := make([]transactionResponse, 0, len(view.Transactions))
	for _, t := range view.Transactions {
		txs = append(txs, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contact":      toContactResponse(view.Contact),
		"transactions": txs,
		"balance":      view.Balance,
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// handleAddTransaction records a movement from the multipart entry form and
// redirects back into the contact's ledger.
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	in, receipt, ok := s.parseTransactionForm(w, r)
	if !ok {
		return
	}

	created, err := s.ledger.Add(r.Context(), in, receipt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	http.Redirect(w, r, fmt.Sprintf("/ledger?contactId=%d", created.ContactID), http.StatusSeeOther)
}

// handleUpdateTransaction amends an existing movement. The owning contact
// never changes on update.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	in, receipt, ok := s.parseTransactionForm(w, r)
	if !ok {
		return
	}

	updated, err := s.ledger.Update(r.Context(), id, in, receipt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	http.Redirect(w, r, fmt.Sprintf("/ledger?contactId=%d", updated.ContactID), http.StatusSeeOther)
}

// parseTransactionForm extracts the transaction fields and the optional
// photo from a multipart post. It writes the error response itself and
// reports ok=false when the request cannot proceed.
func (s *Server) parseTransactionForm(w http.ResponseWriter, r *http.Request) (core.TransactionInput, *services.ReceiptUpload, bool) {
	if err := r.ParseMultipartForm(maxReceiptMemory); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form")
		return core.TransactionInput{}, nil, false
	}

	// contactId is absent on update posts; the service fills it from the row.
	contactID, _ := strconv.ParseInt(r.Form.Get("contactId"), 10, 64)

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string]string{"amount": "amount must be greater than zero"},
		})
		return core.TransactionInput{}, nil, false
	}

	in := core.TransactionInput{
		ContactID: contactID,
		Amount:    amount,
		Type:      core.TransactionType(sanitize(r.Form.Get("type"))),
		Details:   sanitize(r.Form.Get("details")),
	}
	if v := sanitize(r.Form.Get("transactionDate")); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"errors": map[string]string{"transactionDate": "invalid date, expected YYYY-MM-DD"},
			})
			return core.TransactionInput{}, nil, false
		}
		in.TransactionDate = d
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil, true
		}
		writeError(w, http.StatusBadRequest, "malformed photo upload")
		return core.TransactionInput{}, nil, false
	}
	// The service consumes the reader before the handler returns; the
	// request body keeps it alive until then.
	return in, &services.ReceiptUpload{Filename: header.Filename, Data: file}, true
}
