package ledger

import (
	"context"

	"syndic/internal/core"
)

// Ports for the ledger repository. Implementations are handed an
// already-authorized caller; scoping and role checks live outside this core.
type (
	UnitLister interface {
		// ListUnits returns units ordered by id ascending. When
		// excludeAdministrative is set, the reserved administrative unit is
		// filtered out server-side.
		ListUnits(ctx context.Context, excludeAdministrative bool) ([]core.Unit, error)
	}

	DueStore interface {
		// ListDues returns all dues recorded for the year.
		ListDues(ctx context.Context, year int) ([]core.Due, error)
		// CreateDue inserts a due with status "publiée" and fixed calc mode.
		// attachmentRef may be empty; it is usually linked later by the
		// upload workflow.
		CreateDue(ctx context.Context, unitID int64, month core.Month, year int, amount core.Money, attachmentRef string) (core.Due, error)
		DeleteDue(ctx context.Context, id int64) error
		// AttachDueReceipt links a confirmed upload to the due and moves its
		// status; an empty status preserves the current one. Callers must
		// only invoke this after the store confirmed durability of the
		// object behind ref.
		AttachDueReceipt(ctx context.Context, id int64, ref, status string) error
	}

	ChargeStore interface {
		ListCharges(ctx context.Context, year int) ([]core.Charge, error)
		CreateCharge(ctx context.Context, month core.Month, year int, category string, amount core.Money) (core.Charge, error)
		DeleteCharge(ctx context.Context, id int64) error
		AttachChargeJustification(ctx context.Context, id int64, ref string) error
	}

	// Repository is the full ledger surface the services layer composes over.
	Repository interface {
		UnitLister
		DueStore
		ChargeStore
	}
)
