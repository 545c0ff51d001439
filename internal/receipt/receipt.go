// Package receipt renders the payment receipt attached to a freshly recorded
// due: a fixed-layout single page with the unit, period, amount, and the
// recording timestamp.
package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"syndic/internal/core"
)

// Data carries everything printed on the receipt.
type Data struct {
	Unit       core.Unit
	Month      core.Month
	Year       int
	Amount     core.Money
	RecordedAt time.Time
}

// Build serializes the receipt to PDF bytes. Pure construction; failure here
// means the upload workflow aborts before any network call.
func Build(d Data) ([]byte, error) {
	if !d.Month.Valid() {
		return nil, core.ErrInvalidMonth
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(20, 20, tr("Reçu de Cotisation"))

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Résidence : %s", d.Unit.Name),
		fmt.Sprintf("Numéro Appartement : %d", d.Unit.ID),
		fmt.Sprintf("Mois : %s", d.Month.Name()),
		fmt.Sprintf("Année : %d", d.Year),
		fmt.Sprintf("Montant payé : %s", d.Amount.FormatMAD()),
		fmt.Sprintf("Date de paiement : %s", d.RecordedAt.Format("02/01/2006 15:04:05")),
	}
	y := 40.0
	for _, line := range lines {
		pdf.Text(20, y, tr(line))
		y += 10
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
