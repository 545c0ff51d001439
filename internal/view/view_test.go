package view

import (
	"testing"

	"syndic/internal/core"
)

func sampleUnits() []core.Unit {
	return []core.Unit{
		{ID: 1, Name: "Appartement 1"},
		{ID: 2, Name: "Appartement 2"},
		{ID: 3, Name: "Appartement 3"},
	}
}

func sampleDues() []core.Due {
	return []core.Due{
		{ID: 10, UnitID: 1, Month: core.Janvier, Year: 2024, Status: core.StatusPublished, Amount: core.Money{Cents: 25000}},
		{ID: 11, UnitID: 2, Month: core.Janvier, Year: 2024, Status: core.StatusValidated, Amount: core.Money{Cents: 25000}, AttachmentRef: "ref-11"},
		{ID: 12, UnitID: 1, Month: core.Fevrier, Year: 2024, Status: core.StatusPublished, Amount: core.Money{Cents: 25000}},
	}
}

func sampleCharges() []core.Charge {
	return []core.Charge{
		{ID: 20, Month: core.Janvier, Year: 2024, Category: "Eau", Amount: core.Money{Cents: 12000}},
		{ID: 21, Month: core.Fevrier, Year: 2024, Category: "Électricité", Amount: core.Money{Cents: 35000}, AttachmentRef: "ref-21"},
	}
}

func TestBuildTable(t *testing.T) {
	table := BuildTable(2024, sampleUnits(), sampleDues(), sampleCharges())

	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(table.Rows))
	}

	// Janvier: 50000 dues - 12000 charges = 38000.
	if got := table.Headers[0].Budget.Cents; got != 38000 {
		t.Fatalf("Janvier budget = %d, want 38000", got)
	}
	// Février ran a deficit: 25000 - 35000 = -10000.
	if got := table.Headers[1].Budget.Cents; got != -10000 {
		t.Fatalf("Février budget = %d, want -10000", got)
	}
	if table.Headers[1].Name != "Février" {
		t.Fatalf("header name = %q, want Février", table.Headers[1].Name)
	}

	row1 := table.Rows[0]
	if !row1.Cells[0].Paid || row1.Cells[0].DueID != 10 {
		t.Fatalf("unit 1 Janvier cell = %+v, want paid due 10", row1.Cells[0])
	}
	if row1.Cells[2].Paid {
		t.Fatalf("unit 1 Mars cell should be empty, got %+v", row1.Cells[2])
	}

	row2 := table.Rows[1]
	if row2.Cells[0].Status != core.StatusValidated || row2.Cells[0].AttachmentRef != "ref-11" {
		t.Fatalf("unit 2 Janvier cell lost attachment data: %+v", row2.Cells[0])
	}

	if table.Totals.NetBudget.Cents != 75000-47000 {
		t.Fatalf("annual net = %d, want %d", table.Totals.NetBudget.Cents, 75000-47000)
	}
}

func TestBuildCardsOrderAndBudgets(t *testing.T) {
	unit := core.Unit{ID: 1, Name: "Appartement 1"}
	cards := BuildCards(unit, 2024, core.Mars, sampleDues(), sampleCharges())

	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3 (Janvier..Mars)", len(cards))
	}
	if cards[0].Month != core.Mars || cards[2].Month != core.Janvier {
		t.Fatalf("cards not in descending order: %v..%v", cards[0].Month, cards[2].Month)
	}

	mars := cards[0]
	if mars.HasDue {
		t.Fatal("unit 1 has no due in Mars")
	}
	if mars.MonthlyBudget.Cents != 0 {
		t.Fatalf("Mars budget = %d, want 0", mars.MonthlyBudget.Cents)
	}
	// Running net through Mars: 38000 - 10000 + 0.
	if mars.CumulativeBudget.Cents != 28000 {
		t.Fatalf("Mars cumulative = %d, want 28000", mars.CumulativeBudget.Cents)
	}

	fevrier := cards[1]
	if !fevrier.HasDue || fevrier.DueAmount.Cents != 25000 {
		t.Fatalf("Février card = %+v, want unit due of 25000", fevrier)
	}
	if len(fevrier.Charges) != 1 || fevrier.Charges[0].Category != "Électricité" {
		t.Fatalf("Février charges = %+v", fevrier.Charges)
	}

	janvier := cards[2]
	if janvier.CumulativeBudget.Cents != 38000 {
		t.Fatalf("Janvier cumulative = %d, want 38000", janvier.CumulativeBudget.Cents)
	}
}

func TestBuildCardsInvalidThroughShowsFullYear(t *testing.T) {
	cards := BuildCards(core.Unit{ID: 1}, 2024, core.Month(0), sampleDues(), sampleCharges())
	if len(cards) != 12 {
		t.Fatalf("got %d cards, want 12", len(cards))
	}
}

func TestPaginate(t *testing.T) {
	rows := make([]TableRow, 25)
	for i := range rows {
		rows[i].Unit = core.Unit{ID: int64(i + 1)}
	}

	cases := []struct {
		name      string
		page      int
		perPage   int
		wantLen   int
		wantPage  int
		wantTotal int
		wantFirst int64
	}{
		{"first page", 1, 10, 10, 1, 3, 1},
		{"middle page", 2, 10, 10, 2, 3, 11},
		{"short last page", 3, 10, 5, 3, 3, 21},
		{"page clamped high", 99, 10, 5, 3, 3, 21},
		{"page clamped low", 0, 10, 10, 1, 3, 1},
		{"default per page", 1, 0, 10, 1, 3, 1},
		{"single page", 1, 50, 25, 1, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			window, p := Paginate(rows, tc.page, tc.perPage)
			if len(window) != tc.wantLen {
				t.Fatalf("len = %d, want %d", len(window), tc.wantLen)
			}
			if p.Page != tc.wantPage || p.TotalPages != tc.wantTotal {
				t.Fatalf("pagination = %+v, want page %d of %d", p, tc.wantPage, tc.wantTotal)
			}
			if p.TotalRows != 25 {
				t.Fatalf("total rows = %d, want 25", p.TotalRows)
			}
			if len(window) > 0 && window[0].Unit.ID != tc.wantFirst {
				t.Fatalf("first row id = %d, want %d", window[0].Unit.ID, tc.wantFirst)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	window, p := Paginate(nil, 1, 10)
	if len(window) != 0 || p.TotalPages != 1 || p.Page != 1 {
		t.Fatalf("empty input: window=%d pagination=%+v", len(window), p)
	}
}
