package core

// Reconciliation engine: pure aggregation over an in-memory snapshot of dues
// and charges. No I/O happens here; callers load a year snapshot through the
// ledger ports and hand the slices in. Months are always iterated in fixed
// calendar order so totals are deterministic regardless of fetch order.

// AnnualTotals carries the year-wide sums and their net.
type AnnualTotals struct {
	DuesTotal    Money
	ChargesTotal Money
	NetBudget    Money
}

// Presence partitions units into those with and without a recorded due for a
// period. Every non-administrative unit lands in exactly one side.
type Presence struct {
	Paid   []Unit
	Unpaid []Unit
}

// DuesTotalForMonth sums due amounts matching (month, year). Records with a
// missing amount carry zero centimes and contribute nothing; duplicates for
// the same unit are summed over all matches.
func DuesTotalForMonth(dues []Due, m Month, year int) Money {
	var total Money
	for _, d := range dues {
		if d.Month == m && d.Year == year {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// ChargesTotalForMonth sums charge amounts matching (month, year), with the
// same zero-coercion rule as dues.
func ChargesTotalForMonth(charges []Charge, m Month, year int) Money {
	var total Money
	for _, c := range charges {
		if c.Month == m && c.Year == year {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// MonthlyBudget is dues minus charges for a single month. The sign is
// meaningful: negative means the month ran a deficit.
func MonthlyBudget(dues []Due, charges []Charge, m Month, year int) Money {
	return DuesTotalForMonth(dues, m, year).Sub(ChargesTotalForMonth(charges, m, year))
}

// CumulativeBudget is the running net from January through upto, inclusive.
// Charges are not always recorded in the month they logically belong to, so
// the cumulative figure is what conveys year-to-date solvency.
func CumulativeBudget(dues []Due, charges []Charge, upto Month, year int) Money {
	var total Money
	for _, m := range Months() {
		if m > upto {
			break
		}
		total = total.Add(MonthlyBudget(dues, charges, m, year))
	}
	return total
}

// AnnualTotalsForYear sums dues, charges and their net across all 12 months.
func AnnualTotalsForYear(dues []Due, charges []Charge, year int) AnnualTotals {
	var t AnnualTotals
	for _, m := range Months() {
		t.DuesTotal = t.DuesTotal.Add(DuesTotalForMonth(dues, m, year))
		t.ChargesTotal = t.ChargesTotal.Add(ChargesTotalForMonth(charges, m, year))
	}
	t.NetBudget = t.DuesTotal.Sub(t.ChargesTotal)
	return t
}

// PresenceForMonth answers "who has and has not paid" for one period. Units
// matching adminName are excluded entirely; the remaining units are
// partitioned by whether any due exists for (unit, month, year), preserving
// the input unit order on both sides.
func PresenceForMonth(dues []Due, units []Unit, m Month, year int, adminName string) Presence {
	paidBy := make(map[int64]bool)
	for _, d := range dues {
		if d.Month == m && d.Year == year {
			paidBy[d.UnitID] = true
		}
	}
	var p Presence
	for _, u := range units {
		if u.IsAdministrative(adminName) {
			continue
		}
		if paidBy[u.ID] {
			p.Paid = append(p.Paid, u)
		} else {
			p.Unpaid = append(p.Unpaid, u)
		}
	}
	return p
}

// DueForCell returns the first due recorded for (unit, month, year), if any.
// With the unique period constraint in place there is at most one; legacy
// duplicates resolve to the earliest stored record.
func DueForCell(dues []Due, unitID int64, m Month, year int) (Due, bool) {
	for _, d := range dues {
		if d.UnitID == unitID && d.Month == m && d.Year == year {
			return d, true
		}
	}
	return Due{}, false
}

// ChargesForCell returns all charges recorded for (month, year) in input order.
func ChargesForCell(charges []Charge, m Month, year int) []Charge {
	var out []Charge
	for _, c := range charges {
		if c.Month == m && c.Year == year {
			out = append(out, c)
		}
	}
	return out
}
