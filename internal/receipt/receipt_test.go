package receipt

import (
	"bytes"
	"testing"
	"time"

	"syndic/internal/core"
)

func TestBuildProducesPDF(t *testing.T) {
	data := Data{
		Unit:       core.Unit{ID: 7, Name: "Appart 7"},
		Month:      core.Fevrier,
		Year:       2024,
		Amount:     core.Money{Cents: 50000},
		RecordedAt: time.Date(2024, 2, 12, 10, 30, 0, 0, time.UTC),
	}
	out, err := Build(data)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", out[:min(8, len(out))])
	}
}

func TestBuildRejectsInvalidMonth(t *testing.T) {
	_, err := Build(Data{Unit: core.Unit{ID: 1, Name: "A"}, Month: 0, Year: 2024})
	if err == nil {
		t.Fatalf("expected error for invalid month")
	}
}
