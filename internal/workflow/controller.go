// Package workflow coordinates attachment uploads against the slow paths of
// the system: build the document if needed, push bytes to the blob store,
// then link the stored object to the ledger record. Per-cell status is
// tracked so a dashboard can show progress without polling the stores.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"syndic/internal/blob"
	"syndic/internal/core"
	"syndic/internal/ledger"
	"syndic/internal/log"
	"syndic/internal/receipt"
)

const defaultStatusTTL = 3 * time.Second

var ErrNoData = errors.New("empty attachment payload")

// ReloadFunc is invoked after a successful mutation so the caller can refresh
// whatever projection it renders from.
type ReloadFunc func(ctx context.Context, year int)

type Controller struct {
	repo    ledger.Repository
	store   blob.Store
	status  *statusTracker
	logger  *slog.Logger
	reload  ReloadFunc
	nowFunc func() time.Time
}

type Option func(*Controller)

// WithStatusTTL overrides how long a terminal upload state stays visible
// before the cell returns to idle.
func WithStatusTTL(ttl time.Duration) Option {
	return func(c *Controller) { c.status.ttl = ttl }
}

// WithReload registers the refresh hook fired after successful mutations.
func WithReload(fn ReloadFunc) Option {
	return func(c *Controller) { c.reload = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.nowFunc = now
		c.status.now = now
	}
}

func New(repo ledger.Repository, store blob.Store, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		repo:    repo,
		store:   store,
		status:  newStatusTracker(defaultStatusTTL),
		logger:  logger,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status reports the tracked upload state for a cell. Cells with no attempt
// in flight (or whose last attempt already decayed) are idle.
func (c *Controller) Status(key Key) StatusInfo {
	info, _ := c.status.get(key)
	return info
}

// UploadDueReceipt stores a caller-provided receipt for an existing due and
// links it. The blob is written first; the due row is only touched once the
// store confirmed the object, so a failed upload leaves the record unchanged.
func (c *Controller) UploadDueReceipt(ctx context.Context, due core.Due, filename string, data []byte, contentType string) error {
	key := DueKey(due.UnitID, due.Month, due.Year)
	seq := c.status.begin(key, "téléversement du reçu")

	if len(data) == 0 {
		c.status.finish(key, seq, StatusError, ErrNoData.Error())
		return ErrNoData
	}

	path := blob.ReceiptPath(due.UnitID, due.Month, due.Year, filename, c.nowFunc())
	ref, err := c.store.Upload(ctx, blob.BucketReceipts, path, data, contentType)
	if err != nil {
		c.status.finish(key, seq, StatusError, "échec du téléversement")
		return fmt.Errorf("upload receipt: %w", err)
	}

	if err := c.repo.AttachDueReceipt(ctx, due.ID, string(ref), core.StatusValidated); err != nil {
		c.status.finish(key, seq, StatusError, "échec de l'enregistrement")
		c.logger.ErrorContext(ctx, "receipt stored but not linked",
			log.FieldComponent, log.ComponentWorkflow,
			log.FieldDueID, due.ID,
			log.FieldRef, string(ref),
			log.FieldError, err)
		return fmt.Errorf("attach receipt: %w", err)
	}

	c.status.finish(key, seq, StatusSuccess, "reçu enregistré")
	c.logger.InfoContext(ctx, "due receipt uploaded",
		log.FieldComponent, log.ComponentWorkflow,
		log.FieldOperation, log.OpUpload,
		log.FieldDueID, due.ID,
		log.FieldUnitID, due.UnitID,
		log.FieldMonth, due.Month.Name(),
		log.FieldYear, due.Year)
	c.fireReload(ctx, due.Year)
	return nil
}

// UploadChargeJustification stores a supporting document for a charge and
// links it, under the same store-first contract as due receipts.
func (c *Controller) UploadChargeJustification(ctx context.Context, charge core.Charge, filename string, data []byte, contentType string) error {
	key := ChargeKey(charge.ID)
	seq := c.status.begin(key, "téléversement du justificatif")

	if len(data) == 0 {
		c.status.finish(key, seq, StatusError, ErrNoData.Error())
		return ErrNoData
	}

	path := blob.JustificationPath(charge.ID, filename, c.nowFunc())
	ref, err := c.store.Upload(ctx, blob.BucketJustifications, path, data, contentType)
	if err != nil {
		c.status.finish(key, seq, StatusError, "échec du téléversement")
		return fmt.Errorf("upload justification: %w", err)
	}

	if err := c.repo.AttachChargeJustification(ctx, charge.ID, string(ref)); err != nil {
		c.status.finish(key, seq, StatusError, "échec de l'enregistrement")
		c.logger.ErrorContext(ctx, "justification stored but not linked",
			log.FieldComponent, log.ComponentWorkflow,
			log.FieldChargeID, charge.ID,
			log.FieldRef, string(ref),
			log.FieldError, err)
		return fmt.Errorf("attach justification: %w", err)
	}

	c.status.finish(key, seq, StatusSuccess, "justificatif enregistré")
	c.logger.InfoContext(ctx, "charge justification uploaded",
		log.FieldComponent, log.ComponentWorkflow,
		log.FieldOperation, log.OpUpload,
		log.FieldChargeID, charge.ID,
		log.FieldMonth, charge.Month.Name(),
		log.FieldYear, charge.Year)
	c.fireReload(ctx, charge.Year)
	return nil
}

// RecordDueWithReceipt creates a due and its generated receipt in one flow:
// build the PDF, store it, then insert the due already carrying the
// attachment ref. A document build failure aborts before any network call.
func (c *Controller) RecordDueWithReceipt(ctx context.Context, unit core.Unit, m core.Month, year int, amount core.Money) (core.Due, error) {
	key := DueKey(unit.ID, m, year)
	seq := c.status.begin(key, "génération du reçu")

	doc, err := receipt.Build(receipt.Data{
		Unit:       unit,
		Month:      m,
		Year:       year,
		Amount:     amount,
		RecordedAt: c.nowFunc(),
	})
	if err != nil {
		c.status.finish(key, seq, StatusError, "échec de la génération du reçu")
		return core.Due{}, fmt.Errorf("build receipt: %w", err)
	}

	path := blob.ReceiptPath(unit.ID, m, year, "", c.nowFunc())
	ref, err := c.store.Upload(ctx, blob.BucketReceipts, path, doc, "application/pdf")
	if err != nil {
		c.status.finish(key, seq, StatusError, "échec du téléversement")
		return core.Due{}, fmt.Errorf("upload receipt: %w", err)
	}

	due, err := c.repo.CreateDue(ctx, unit.ID, m, year, amount, string(ref))
	if err != nil {
		c.status.finish(key, seq, StatusError, "échec de l'enregistrement")
		c.logger.ErrorContext(ctx, "receipt stored but due not recorded",
			log.FieldComponent, log.ComponentWorkflow,
			log.FieldUnitID, unit.ID,
			log.FieldRef, string(ref),
			log.FieldError, err)
		return core.Due{}, fmt.Errorf("record due: %w", err)
	}

	c.status.finish(key, seq, StatusSuccess, "cotisation enregistrée")
	c.logger.InfoContext(ctx, "due recorded with receipt",
		log.FieldComponent, log.ComponentWorkflow,
		log.FieldOperation, log.OpCreate,
		log.FieldDueID, due.ID,
		log.FieldUnitID, unit.ID,
		log.FieldMonth, m.Name(),
		log.FieldYear, year,
		"amount", amount.FormatMAD())
	c.fireReload(ctx, year)
	return due, nil
}

func (c *Controller) fireReload(ctx context.Context, year int) {
	if c.reload != nil {
		c.reload(ctx, year)
	}
}
