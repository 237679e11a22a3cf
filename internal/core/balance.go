package core

import "github.com/shopspring/decimal"

// Entry is the slice of a transaction the aggregator needs: who, which
// direction, how much. Storage hands these out; nothing here touches the
// database.
type Entry struct {
	ContactID int64
	Type      TransactionType
	Amount    decimal.Decimal
}

// PortfolioTotals buckets per-contact net balances. Receivable collects the
// positive nets, Payable the absolute values of the negative ones; contacts
// netting to exactly zero land in neither.
type PortfolioTotals struct {
	Receivable decimal.Decimal
	Payable    decimal.Decimal
}

// BalanceOf computes the signed balance over a set of entries: sum of
// Received amounts minus sum of Given amounts. No entries means zero, not an
// error. Order of entries is irrelevant.
func BalanceOf(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Type.Signed(e.Amount))
	}
	return total
}

// ComputePortfolioTotals nets each contact before bucketing. This is not the
// same as summing Received and Given globally: a contact with offsetting
// transactions collapses to a single signed value first, so its entries can
// never land in both buckets.
func ComputePortfolioTotals(entries []Entry) PortfolioTotals {
	nets := make(map[int64]decimal.Decimal)
	order := make([]int64, 0)
	for _, e := range entries {
		if _, seen := nets[e.ContactID]; !seen {
			order = append(order, e.ContactID)
		}
		nets[e.ContactID] = nets[e.ContactID].Add(e.Type.Signed(e.Amount))
	}

	totals := PortfolioTotals{Receivable: decimal.Zero, Payable: decimal.Zero}
	for _, id := range order {
		net := nets[id]
		switch {
		case net.IsPositive():
			totals.Receivable = totals.Receivable.Add(net)
		case net.IsNegative():
			totals.Payable = totals.Payable.Add(net.Abs())
		}
	}
	return totals
}
