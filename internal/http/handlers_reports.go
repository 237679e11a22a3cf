package http

import (
	"net/http"
)

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.MonthlySummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.TransactionSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.Recent(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTotalContacts(w http.ResponseWriter, r *http.Request) {
	cards, err := s.reports.ContactTotals(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleTotalGiven(w http.ResponseWriter, r *http.Request) {
	total, err := s.reports.TotalGiven(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalGiven": total})
}

func (s *Server) handleTotalReceived(w http.ResponseWriter, r *http.Request) {
	total, err := s.reports.TotalReceived(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalReceived": total})
}

func (s *Server) handleTotalBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.reports.Balance(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}
