package core

import (
	"errors"
	"strings"
)

const (
	// StatusPublished is the default status of a freshly recorded due.
	StatusPublished = "publiée"
	// StatusValidated marks a due whose receipt has been attached and checked.
	StatusValidated = "Validé"

	// CalcModeFixed is the only calculation mode currently recorded.
	CalcModeFixed = "fixe"
)

type (
	// Unit is a billable residence. Reference data, provisioned externally;
	// the engine lists units but never mutates them.
	Unit struct {
		ID   int64
		Name string
	}

	// Due is one unit's contribution for a (month, year) period.
	Due struct {
		ID            int64
		UnitID        int64
		Month         Month
		Year          int
		Status        string
		CalcMode      string
		Amount        Money
		AttachmentRef string
	}

	// Charge is an operating expense for a (month, year) period, not tied to
	// any unit.
	Charge struct {
		ID            int64
		Month         Month
		Year          int
		Category      string
		Amount        Money
		AttachmentRef string
	}
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidUnit   = errors.New("invalid unit")
	ErrEmptyCategory = errors.New("empty charge category")
)

// IsAdministrative reports whether the unit is the reserved non-billable unit
// identified by adminName. The administrative unit is filtered out of every
// billing aggregate.
func (u Unit) IsAdministrative(adminName string) bool {
	return adminName != "" && strings.EqualFold(strings.TrimSpace(u.Name), strings.TrimSpace(adminName))
}

func validYear(y int) bool {
	return y >= 2000 && y <= 2200
}

func (d Due) Validate() error {
	if d.UnitID <= 0 {
		return ErrInvalidUnit
	}
	if !d.Month.Valid() {
		return ErrInvalidMonth
	}
	if !validYear(d.Year) {
		return ErrInvalidYear
	}
	return d.Amount.Validate()
}

// HasAttachment reports whether a receipt has been linked to the due.
func (d Due) HasAttachment() bool {
	return strings.TrimSpace(d.AttachmentRef) != ""
}

func (c Charge) Validate() error {
	if !c.Month.Valid() {
		return ErrInvalidMonth
	}
	if !validYear(c.Year) {
		return ErrInvalidYear
	}
	if strings.TrimSpace(c.Category) == "" {
		return ErrEmptyCategory
	}
	return c.Amount.Validate()
}

func (c Charge) HasAttachment() bool {
	return strings.TrimSpace(c.AttachmentRef) != ""
}
