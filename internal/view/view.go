// Package view builds render-ready projections from ledger data. Everything
// here is a pure transform: no I/O, no mutation of the inputs.
package view

import (
	"syndic/internal/core"
)

// TableCell is one (unit, month) intersection in the annual dues table.
type TableCell struct {
	Month         core.Month `json:"month"`
	DueID         int64      `json:"due_id,omitempty"`
	Paid          bool       `json:"paid"`
	Amount        core.Money `json:"amount"`
	Status        string     `json:"status,omitempty"`
	AttachmentRef string     `json:"attachment_ref,omitempty"`
}

type TableRow struct {
	Unit  core.Unit     `json:"unit"`
	Cells [12]TableCell `json:"cells"`
}

// MonthHeader carries the column title and the month's net budget
// (dues minus charges across all units).
type MonthHeader struct {
	Month  core.Month `json:"month"`
	Name   string     `json:"name"`
	Budget core.Money `json:"budget"`
}

type Table struct {
	Year    int              `json:"year"`
	Headers [12]MonthHeader  `json:"headers"`
	Rows    []TableRow       `json:"rows"`
	Totals  core.AnnualTotals `json:"totals"`
}

// BuildTable projects one row per unit with twelve cells. Callers pass the
// resident unit list; the administrative unit is filtered out upstream by the
// repository.
func BuildTable(year int, units []core.Unit, dues []core.Due, charges []core.Charge) Table {
	t := Table{
		Year:   year,
		Totals: core.AnnualTotalsForYear(dues, charges, year),
	}

	for i, m := range core.Months() {
		t.Headers[i] = MonthHeader{
			Month:  m,
			Name:   m.Name(),
			Budget: core.MonthlyBudget(dues, charges, m, year),
		}
	}

	t.Rows = make([]TableRow, 0, len(units))
	for _, u := range units {
		row := TableRow{Unit: u}
		for i, m := range core.Months() {
			cell := TableCell{Month: m}
			if due, ok := core.DueForCell(dues, u.ID, m, year); ok {
				cell.DueID = due.ID
				cell.Paid = true
				cell.Amount = due.Amount
				cell.Status = due.Status
				cell.AttachmentRef = due.AttachmentRef
			}
			row.Cells[i] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ChargeLine is one charge entry on a month card.
type ChargeLine struct {
	ID            int64      `json:"id"`
	Category      string     `json:"category"`
	Amount        core.Money `json:"amount"`
	AttachmentRef string     `json:"attachment_ref,omitempty"`
}

// MonthCard is one month of a unit's statement: the unit's own due plus the
// building-wide monthly and running budgets.
type MonthCard struct {
	Month            core.Month   `json:"month"`
	Name             string       `json:"name"`
	HasDue           bool         `json:"has_due"`
	DueAmount        core.Money   `json:"due_amount"`
	DueStatus        string       `json:"due_status,omitempty"`
	AttachmentRef    string       `json:"attachment_ref,omitempty"`
	MonthlyBudget    core.Money   `json:"monthly_budget"`
	CumulativeBudget core.Money   `json:"cumulative_budget"`
	Charges          []ChargeLine `json:"charges"`
}

// BuildCards returns month cards for one unit from January through the given
// month, most recent first.
func BuildCards(unit core.Unit, year int, through core.Month, dues []core.Due, charges []core.Charge) []MonthCard {
	if !through.Valid() {
		through = core.Decembre
	}

	cards := make([]MonthCard, 0, int(through))
	for m := through; m >= core.Janvier; m-- {
		card := MonthCard{
			Month:            m,
			Name:             m.Name(),
			MonthlyBudget:    core.MonthlyBudget(dues, charges, m, year),
			CumulativeBudget: core.CumulativeBudget(dues, charges, m, year),
		}
		if due, ok := core.DueForCell(dues, unit.ID, m, year); ok {
			card.HasDue = true
			card.DueAmount = due.Amount
			card.DueStatus = due.Status
			card.AttachmentRef = due.AttachmentRef
		}
		for _, c := range core.ChargesForCell(charges, m, year) {
			card.Charges = append(card.Charges, ChargeLine{
				ID:            c.ID,
				Category:      c.Category,
				Amount:        c.Amount,
				AttachmentRef: c.AttachmentRef,
			})
		}
		cards = append(cards, card)
	}
	return cards
}

const defaultPerPage = 10

// Pagination describes the window Paginate returned.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalRows  int `json:"total_rows"`
}

// Paginate slices rows into a clamped page window. Page numbers are
// one-based; out-of-range pages clamp to the nearest valid one rather than
// erroring.
func Paginate(rows []TableRow, page, perPage int) ([]TableRow, Pagination) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	total := len(rows)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return rows[start:end], Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalRows:  total,
	}
}
