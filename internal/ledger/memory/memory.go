// Package memory provides an in-memory ledger repository, used as the dev
// backend and as the test double for everything above the repository ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"syndic/internal/core"
	"syndic/internal/ledger"
)

type Store struct {
	mu        sync.Mutex
	adminName string
	units     []core.Unit
	dues      []core.Due
	charges   []core.Charge
	nextDue   int64
	nextChg   int64
}

// New creates a store seeded with the given units. adminName identifies the
// reserved administrative unit for filtered listings.
func New(units []core.Unit, adminName string) *Store {
	s := &Store{adminName: adminName, nextDue: 1, nextChg: 1}
	s.units = append(s.units, units...)
	sort.Slice(s.units, func(i, j int) bool { return s.units[i].ID < s.units[j].ID })
	return s
}

var _ ledger.Repository = (*Store)(nil)

func (s *Store) ListUnits(_ context.Context, excludeAdministrative bool) ([]core.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Unit, 0, len(s.units))
	for _, u := range s.units {
		if excludeAdministrative && u.IsAdministrative(s.adminName) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) ListDues(_ context.Context, year int) ([]core.Due, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Due
	for _, d := range s.dues {
		if d.Year == year {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) CreateDue(_ context.Context, unitID int64, month core.Month, year int, amount core.Money, attachmentRef string) (core.Due, error) {
	d := core.Due{
		UnitID:        unitID,
		Month:         month,
		Year:          year,
		Status:        core.StatusPublished,
		CalcMode:      core.CalcModeFixed,
		Amount:        amount,
		AttachmentRef: attachmentRef,
	}
	if err := d.Validate(); err != nil {
		return core.Due{}, ledger.Wrap("create due", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.dues {
		if existing.UnitID == unitID && existing.Month == month && existing.Year == year {
			return core.Due{}, ledger.Wrap("create due", ledger.ErrDuplicatePeriod)
		}
	}
	d.ID = s.nextDue
	s.nextDue++
	s.dues = append(s.dues, d)
	return d, nil
}

func (s *Store) DeleteDue(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.dues {
		if d.ID == id {
			s.dues = append(s.dues[:i], s.dues[i+1:]...)
			return nil
		}
	}
	return ledger.Wrap("delete due", ledger.ErrNotFound)
}

func (s *Store) AttachDueReceipt(_ context.Context, id int64, ref, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.dues {
		if s.dues[i].ID == id {
			s.dues[i].AttachmentRef = ref
			if status != "" {
				s.dues[i].Status = status
			}
			return nil
		}
	}
	return ledger.Wrap("attach due receipt", ledger.ErrNotFound)
}

func (s *Store) ListCharges(_ context.Context, year int) ([]core.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Charge
	for _, c := range s.charges {
		if c.Year == year {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCharge(_ context.Context, month core.Month, year int, category string, amount core.Money) (core.Charge, error) {
	c := core.Charge{Month: month, Year: year, Category: category, Amount: amount}
	if err := c.Validate(); err != nil {
		return core.Charge{}, ledger.Wrap("create charge", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextChg
	s.nextChg++
	s.charges = append(s.charges, c)
	return c, nil
}

func (s *Store) DeleteCharge(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.charges {
		if c.ID == id {
			s.charges = append(s.charges[:i], s.charges[i+1:]...)
			return nil
		}
	}
	return ledger.Wrap("delete charge", ledger.ErrNotFound)
}

func (s *Store) AttachChargeJustification(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.charges {
		if s.charges[i].ID == id {
			s.charges[i].AttachmentRef = ref
			return nil
		}
	}
	return ledger.Wrap("attach charge justification", ledger.ErrNotFound)
}
