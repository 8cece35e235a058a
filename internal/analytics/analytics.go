// Package analytics derives dashboard statistics from the invoice table.
// Nothing is persisted; every call scans the current rows.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

const DefaultTopOwners = 10

// Window selects the invoices that feed the spending figures.
type Window struct {
	Name     string
	Includes func(inv *invoice.Invoice, today time.Time) bool
}

// Windows is tried in order; the first one that selects at least one invoice wins.
var Windows = []Window{
	{Name: "current_month", Includes: inCurrentMonth},
	{Name: "last_30_days", Includes: inLast30Days},
	{Name: "all", Includes: func(*invoice.Invoice, time.Time) bool { return true }},
}

// Invoice dates are calendar days stored as UTC midnight. The window
// predicates and the monthly buckets compare them against today's calendar
// day, also as UTC midnight, so the server's zone never shifts a date.
func inCurrentMonth(inv *invoice.Invoice, today time.Time) bool {
	return inv.Date.Year() == today.Year() && inv.Date.Month() == today.Month()
}

func inLast30Days(inv *invoice.Invoice, today time.Time) bool {
	return !inv.Date.Before(today.AddDate(0, 0, -30))
}

// calendarDay returns the date of t in its own location as UTC midnight.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CategoryTotal struct {
	Name  string
	Color string
	Total decimal.Decimal
}

type OwnerTotal struct {
	OwnerID uuid.UUID
	Name    string
	Total   decimal.Decimal
}

type MonthTotal struct {
	Year  int
	Month time.Month
	Total decimal.Decimal
}

type Summary struct {
	Window        string
	InvoiceCount  int
	TotalSpending decimal.Decimal
	AverageAmount decimal.Decimal
	// PendingCount spans every invoice, not only the selected window.
	PendingCount int
	TotalUsers   int
	Categories   []CategoryTotal
	TopOwners    []OwnerTotal
	Monthly      []MonthTotal
}

// Compute builds a Summary for invs as seen at now.
func Compute(invs []*invoice.Invoice, now time.Time, topN int) *Summary {
	today := calendarDay(now)
	window, selected := selectWindow(invs, today)

	s := &Summary{
		Window:        window,
		InvoiceCount:  len(selected),
		TotalSpending: decimal.Zero,
		AverageAmount: decimal.Zero,
	}

	for _, inv := range invs {
		if inv.Status == invoice.StatusPending {
			s.PendingCount++
		}
	}

	for _, inv := range selected {
		s.TotalSpending = s.TotalSpending.Add(inv.Amount)
	}

	if len(selected) > 0 {
		s.AverageAmount = s.TotalSpending.Div(decimal.NewFromInt(int64(len(selected))))
	}

	s.Categories = byCategory(selected)
	s.TopOwners = topOwners(selected, topN)
	s.Monthly = monthly(invs, today)

	return s
}

func selectWindow(invs []*invoice.Invoice, today time.Time) (string, []*invoice.Invoice) {
	for _, w := range Windows {
		var selected []*invoice.Invoice

		for _, inv := range invs {
			if w.Includes(inv, today) {
				selected = append(selected, inv)
			}
		}

		if len(selected) > 0 {
			return w.Name, selected
		}
	}

	return Windows[len(Windows)-1].Name, nil
}

func byCategory(invs []*invoice.Invoice) []CategoryTotal {
	index := make(map[string]int)

	var out []CategoryTotal

	for _, inv := range invs {
		if inv.Category == nil {
			continue
		}

		i, ok := index[inv.Category.Name]
		if !ok {
			i = len(out)
			index[inv.Category.Name] = i
			out = append(out, CategoryTotal{Name: inv.Category.Name, Color: inv.Category.Color, Total: decimal.Zero})
		}

		out[i].Total = out[i].Total.Add(inv.Amount)
	}

	slices.SortStableFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return out
}

func topOwners(invs []*invoice.Invoice, n int) []OwnerTotal {
	index := make(map[uuid.UUID]int)

	var out []OwnerTotal

	for _, inv := range invs {
		i, ok := index[inv.OwnerID]
		if !ok {
			name := "Unknown"
			if inv.Owner != nil && inv.Owner.FullName != "" {
				name = inv.Owner.FullName
			}

			i = len(out)
			index[inv.OwnerID] = i
			out = append(out, OwnerTotal{OwnerID: inv.OwnerID, Name: name, Total: decimal.Zero})
		}

		out[i].Total = out[i].Total.Add(inv.Amount)
	}

	// Ties keep first-seen order.
	slices.SortStableFunc(out, func(a, b OwnerTotal) int {
		return b.Total.Cmp(a.Total)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}

	return out
}

// monthly buckets every invoice by the (year, month) of its date over the
// twelve months ending with today's month, oldest first.
func monthly(invs []*invoice.Invoice, today time.Time) []MonthTotal {
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	out := make([]MonthTotal, 12)
	for i := range out {
		m := start.AddDate(0, i, 0)
		out[i] = MonthTotal{Year: m.Year(), Month: m.Month(), Total: decimal.Zero}
	}

	for _, inv := range invs {
		i := (inv.Date.Year()-start.Year())*12 + int(inv.Date.Month()-start.Month())

		if i < 0 || i >= len(out) {
			continue
		}

		out[i].Total = out[i].Total.Add(inv.Amount)
	}

	return out
}
