package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"khata/internal/core"
)

func contactInputFromForm(r *http.Request) core.ContactInput {
	return core.ContactInput{
		Name:        sanitize(r.Form.Get("name")),
		PhoneNumber: sanitize(r.Form.Get("phoneNumber")),
		ContactType: core.ContactType(sanitize(r.Form.Get("contactType"))),
		Email:       sanitize(r.Form.Get("email")),
		Address:     sanitize(r.Form.Get("address")),
		Notes:       sanitize(r.Form.Get("notes")),
		Actor:       sanitize(r.Form.Get("actor")),
	}
}

// handleListContacts serves the accounts table: active contacts of the
// requested type with their balances. The DataTable consumer expects the
// rows under a "data" key.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contactType := r.URL.Query().Get("type")

	cacheKey := "list:" + contactType
	if rows, ok := s.listCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, map[string]any{"data": rows})
		return
	}

	rows, err := s.contacts.List(r.Context(), contactType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.listCache.Set(cacheKey, rows)
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleContactTotals(w http.ResponseWriter, r *http.Request) {
	contactType := r.URL.Query().Get("type")

	cacheKey := "totals:" + contactType
	if totals, ok := s.totalsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, totals)
		return
	}

	totals, err := s.contacts.PortfolioTotals(r.Context(), contactType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.totalsCache.Set(cacheKey, totals)
	writeJSON(w, http.StatusOK, totals)
}

// handleCreateContact takes the form post from the new-account page and
// redirects into the fresh contact's ledger.
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form")
		return
	}

	created, err := s.contacts.Create(r.Context(), contactInputFromForm(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	http.Redirect(w, r, fmt.Sprintf("/ledger?contactId=%d", created.ID), http.StatusSeeOther)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	contact, err := s.contacts.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

func (s *Server) handleEditContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form")
		return
	}

	if _, err := s.contacts.Edit(r.Context(), id, contactInputFromForm(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	http.Redirect(w, r, fmt.Sprintf("/ledger?contactId=%d", id), http.StatusSeeOther)
}

// handleDeleteContact removes the contact and every one of its transactions,
// reporting the cascade count back to the confirmation dialog.
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	removed, err := s.contacts.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	slog.InfoContext(r.Context(), "Contact delete served", "contact_id", id, "removed_transactions", removed)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Contact and %d transaction(s) deleted successfully", removed),
	})
}

func (s *Server) handleHasTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	has, err := s.contacts.HasTransactions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, has)
}
