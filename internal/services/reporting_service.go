package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

// recentLimit caps the dashboard's recent-transactions list.
const recentLimit = 10

// Reporting DTOs. The json field names are consumed verbatim by the chart
// helpers; renaming any of them breaks the dashboard.
type (
	MonthlySummary struct {
		MonthName     string          `json:"monthName"`
		Year          int             `json:"year"`
		TotalGiven    decimal.Decimal `json:"totalGiven"`
		TotalReceived decimal.Decimal `json:"totalReceived"`
	}

	PartySummary struct {
		PartyName     string          `json:"partyName"`
		TotalGiven    decimal.Decimal `json:"totalGiven"`
		TotalReceived decimal.Decimal `json:"totalReceived"`
	}

	RecentEntry struct {
		PartyName       string          `json:"partyName"`
		Type            string          `json:"type"`
		Amount          decimal.Decimal `json:"amount"`
		TransactionDate string          `json:"transactionDate"`
		Details         string          `json:"details"`
	}

	ContactCards struct {
		TotalContacts  int64 `json:"totalContacts"`
		TotalCustomers int64 `json:"totalCustomers"`
		TotalSuppliers int64 `json:"totalSuppliers"`
		TotalActive    int64 `json:"totalActive"`
	}
)

// ReportingService serves the dashboard's read-only projections. Nothing
// here writes; every call recomputes from the transaction rows.
type ReportingService struct {
	repo ReportingRepository
}

func NewReportingService(repo ReportingRepository) *ReportingService {
	return &ReportingService{repo: repo}
}

// MonthlySummary folds transactions into per-calendar-month Given/Received
// totals, oldest month first.
func (s *ReportingService) MonthlySummary(ctx context.Context) ([]MonthlySummary, error) {
	rows, err := s.repo.MonthlyRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}

	type key struct {
		year  int
		month int
	}
	index := make(map[key]int)
	out := make([]MonthlySummary, 0)
	for _, r := range rows {
		k := key{r.Year, int(r.Month)}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, MonthlySummary{
				MonthName:     r.Month.String(),
				Year:          r.Year,
				TotalGiven:    decimal.Zero,
				TotalReceived: decimal.Zero,
			})
		}
		switch r.Type {
		case core.Given:
			out[i].TotalGiven = out[i].TotalGiven.Add(r.Amount)
		case core.Received:
			out[i].TotalReceived = out[i].TotalReceived.Add(r.Amount)
		}
	}
	return out, nil
}

// TransactionSummary totals Given/Received per party across active contacts.
func (s *ReportingService) TransactionSummary(ctx context.Context) ([]PartySummary, error) {
	rows, err := s.repo.PartyRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction summary: %w", err)
	}

	index := make(map[string]int)
	out := make([]PartySummary, 0)
	for _, r := range rows {
		i, ok := index[r.PartyName]
		if !ok {
			i = len(out)
			index[r.PartyName] = i
			out = append(out, PartySummary{
				PartyName:     r.PartyName,
				TotalGiven:    decimal.Zero,
				TotalReceived: decimal.Zero,
			})
		}
		switch r.Type {
		case core.Given:
			out[i].TotalGiven = out[i].TotalGiven.Add(r.Amount)
		case core.Received:
			out[i].TotalReceived = out[i].TotalReceived.Add(r.Amount)
		}
	}
	return out, nil
}

// Recent returns the ten newest transactions across all contacts.
func (s *ReportingService) Recent(ctx context.Context) ([]RecentEntry, error) {
	rows, err := s.repo.RecentTransactions(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	out := make([]RecentEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, RecentEntry{
			PartyName:       r.PartyName,
			Type:            string(r.Type),
			Amount:          r.Amount,
			TransactionDate: r.TransactionDate.Format("2006-01-02"),
			Details:         r.Details,
		})
	}
	return out, nil
}

// ContactTotals feeds the count cards on the dashboard.
func (s *ReportingService) ContactTotals(ctx context.Context) (ContactCards, error) {
	counts, err := s.repo.CountContacts(ctx)
	if err != nil {
		return ContactCards{}, fmt.Errorf("contact totals: %w", err)
	}
	return ContactCards{
		TotalContacts:  counts.Total,
		TotalCustomers: counts.Customers,
		TotalSuppliers: counts.Suppliers,
		TotalActive:    counts.Active,
	}, nil
}

// TotalGiven sums every Given amount across active contacts.
func (s *ReportingService) TotalGiven(ctx context.Context) (decimal.Decimal, error) {
	_, given, err := s.globalSums(ctx)
	return given, err
}

// TotalReceived sums every Received amount across active contacts.
func (s *ReportingService) TotalReceived(ctx context.Context) (decimal.Decimal, error) {
	received, _, err := s.globalSums(ctx)
	return received, err
}

// Balance is the global net: received minus given over active contacts.
func (s *ReportingService) Balance(ctx context.Context) (decimal.Decimal, error) {
	entries, err := s.repo.Entries(ctx, "")
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	return core.BalanceOf(entries), nil
}

func (s *ReportingService) globalSums(ctx context.Context) (received, given decimal.Decimal, err error) {
	entries, err := s.repo.Entries(ctx, "")
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("global sums: %w", err)
	}
	received, given = decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case core.Received:
			received = received.Add(e.Amount)
		case core.Given:
			given = given.Add(e.Amount)
		}
	}
	return received, given, nil
}
