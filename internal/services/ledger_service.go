// Package services orchestrates ledger operations across the repository, the
// blob store and the cleanup queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"syndic/internal/amqp"
	"syndic/internal/blob"
	"syndic/internal/core"
	"syndic/internal/ledger"
	"syndic/internal/log"
)

// ValidationError reports caller input that never reached the repository.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// OrphanPublisher enqueues cleanup work for stored objects whose ledger
// record was deleted.
type OrphanPublisher interface {
	PublishOrphan(ctx context.Context, msg *amqp.OrphanMessage) error
}

// Snapshot is one year of ledger data loaded in a single pass. The engine
// and the view projections consume it as-is.
type Snapshot struct {
	Year    int
	Units   []core.Unit
	Dues    []core.Due
	Charges []core.Charge
}

// LedgerService orchestrates dues and charges across the repository, the
// attachment store and the cleanup queue. The publisher may be nil; cleanup
// is then skipped with a warning, never a failure.
type LedgerService struct {
	repo      ledger.Repository
	blobs     blob.Store
	publisher OrphanPublisher
}

func NewLedgerService(repo ledger.Repository, blobs blob.Store, publisher OrphanPublisher) *LedgerService {
	return &LedgerService{
		repo:      repo,
		blobs:     blobs,
		publisher: publisher,
	}
}

// Snapshot loads units, dues and charges for a year concurrently. On any
// failure the whole load fails; callers keep whatever state they already
// had and no partial snapshot escapes.
func (s *LedgerService) Snapshot(ctx context.Context, year int) (Snapshot, error) {
	snap := Snapshot{Year: year}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		units, err := s.repo.ListUnits(ctx, true)
		if err != nil {
			return fmt.Errorf("load units: %w", err)
		}
		snap.Units = units
		return nil
	})
	g.Go(func() error {
		dues, err := s.repo.ListDues(ctx, year)
		if err != nil {
			return fmt.Errorf("load dues: %w", err)
		}
		snap.Dues = dues
		return nil
	})
	g.Go(func() error {
		charges, err := s.repo.ListCharges(ctx, year)
		if err != nil {
			return fmt.Errorf("load charges: %w", err)
		}
		snap.Charges = charges
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// RecordDue validates the decimal amount and inserts a due with no
// attachment; the upload workflow links a receipt afterwards.
func (s *LedgerService) RecordDue(ctx context.Context, unitID int64, month core.Month, year int, amountInput string) (core.Due, error) {
	amount, err := ParseAmount(amountInput)
	if err != nil {
		return core.Due{}, err
	}
	if !month.Valid() {
		return core.Due{}, &ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}

	due, err := s.repo.CreateDue(ctx, unitID, month, year, amount, "")
	if err != nil {
		return core.Due{}, fmt.Errorf("record due: %w", err)
	}
	return due, nil
}

// RecordCharge validates the decimal amount and inserts a charge.
func (s *LedgerService) RecordCharge(ctx context.Context, month core.Month, year int, category, amountInput string) (core.Charge, error) {
	amount, err := ParseAmount(amountInput)
	if err != nil {
		return core.Charge{}, err
	}
	if !month.Valid() {
		return core.Charge{}, &ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}

	charge, err := s.repo.CreateCharge(ctx, month, year, category, amount)
	if err != nil {
		return core.Charge{}, fmt.Errorf("record charge: %w", err)
	}
	return charge, nil
}

// RemoveDue hard-deletes the due. If the record carried an attachment, a
// cleanup message is published for the stored object; a publish failure is
// logged and swallowed since the delete already stuck.
func (s *LedgerService) RemoveDue(ctx context.Context, due core.Due) error {
	if err := s.repo.DeleteDue(ctx, due.ID); err != nil {
		return fmt.Errorf("remove due: %w", err)
	}

	if due.HasAttachment() {
		s.publishOrphan(ctx, blob.BucketReceipts, due.AttachmentRef)
	}
	return nil
}

// RemoveCharge hard-deletes the charge under the same cleanup contract as
// RemoveDue.
func (s *LedgerService) RemoveCharge(ctx context.Context, charge core.Charge) error {
	if err := s.repo.DeleteCharge(ctx, charge.ID); err != nil {
		return fmt.Errorf("remove charge: %w", err)
	}

	if charge.HasAttachment() {
		s.publishOrphan(ctx, blob.BucketJustifications, charge.AttachmentRef)
	}
	return nil
}

// AttachmentURL resolves a stored ref to its public URL.
func (s *LedgerService) AttachmentURL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.blobs.PublicURL(blob.Ref(ref))
}

// ParseAmount converts a decimal amount string to Money. Bad input comes
// back as a ValidationError on the amount field, so every entry point
// surfaces the same message.
func ParseAmount(input string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(input)
	if err != nil {
		return core.Money{}, &ValidationError{Field: "amount", Err: err}
	}
	return core.Money{Cents: cents}, nil
}

func (s *LedgerService) publishOrphan(ctx context.Context, bucket blob.Bucket, ref string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "cleanup publisher not available, orphan object kept",
			log.FieldComponent, log.ComponentLedger,
			log.FieldBucket, string(bucket),
			log.FieldRef, ref)
		return
	}
	if err := s.publisher.PublishOrphan(ctx, amqp.NewOrphanMessage(bucket, ref)); err != nil {
		slog.ErrorContext(ctx, "failed to publish orphan cleanup message",
			log.FieldComponent, log.ComponentLedger,
			log.FieldBucket, string(bucket),
			log.FieldRef, ref,
			log.FieldError, err)
	}
}

// Close releases the repository and publisher when they hold connections.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("repository: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
