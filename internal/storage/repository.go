// Package storage is the SQLite-backed ledger repository. The schema lives
// in embedded migrations and is applied on open, so a fresh dbPath boots
// straight into a usable database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"syndic/internal/core"
	"syndic/internal/ledger"
	"syndic/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListUnits implements ledger.UnitLister.
func (r *SQLiteRepository) ListUnits(ctx context.Context, excludeAdministrative bool) ([]core.Unit, error) {
	query := `SELECT id, name FROM units ORDER BY id`
	if excludeAdministrative {
		query = `SELECT id, name FROM units WHERE is_administrative = 0 ORDER BY id`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, ledger.Errf("list units", "query units: %w", err)
	}
	defer rows.Close()

	var units []core.Unit
	for rows.Next() {
		var u core.Unit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, ledger.Errf("list units", "scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Errf("list units", "iterate units: %w", err)
	}
	return units, nil
}

// ListDues implements ledger.DueStore.
func (r *SQLiteRepository) ListDues(ctx context.Context, year int) ([]core.Due, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, unit_id, period_month, period_year, status, calc_mode, amount_cents, attachment_ref
		FROM dues WHERE period_year = ? ORDER BY id`, year)
	if err != nil {
		return nil, ledger.Errf("list dues", "query dues: %w", err)
	}
	defer rows.Close()

	var dues []core.Due
	for rows.Next() {
		var d core.Due
		var month int
		if err := rows.Scan(&d.ID, &d.UnitID, &month, &d.Year, &d.Status, &d.CalcMode, &d.Amount.Cents, &d.AttachmentRef); err != nil {
			return nil, ledger.Errf("list dues", "scan due: %w", err)
		}
		d.Month = core.Month(month)
		dues = append(dues, d)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Errf("list dues", "iterate dues: %w", err)
	}
	return dues, nil
}

// CreateDue implements ledger.DueStore. The unique index on
// (unit_id, period_month, period_year) rejects a second due for the same
// cell; the violation surfaces as ledger.ErrDuplicatePeriod.
func (r *SQLiteRepository) CreateDue(ctx context.Context, unitID int64, month core.Month, year int, amount core.Money, attachmentRef string) (core.Due, error) {
	due := core.Due{
		UnitID:        unitID,
		Month:         month,
		Year:          year,
		Status:        core.StatusPublished,
		CalcMode:      core.CalcModeFixed,
		Amount:        amount,
		AttachmentRef: attachmentRef,
	}
	if err := due.Validate(); err != nil {
		return core.Due{}, ledger.Wrap("create due", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dues (unit_id, period_month, period_year, status, calc_mode, amount_cents, attachment_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		unitID, int(month), year, due.Status, due.CalcMode, amount.Cents, attachmentRef)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Due{}, ledger.Wrap("create due", ledger.ErrDuplicatePeriod)
		}
		return core.Due{}, ledger.Errf("create due", "insert due: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Due{}, ledger.Errf("create due", "last insert id: %w", err)
	}
	due.ID = id

	slog.InfoContext(ctx, "due saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpCreate,
		log.FieldDueID, due.ID,
		log.FieldUnitID, unitID,
		log.FieldMonth, month.Name(),
		log.FieldYear, year,
		log.FieldAmountCents, amount.Cents)
	return due, nil
}

func (r *SQLiteRepository) DeleteDue(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dues WHERE id = ?`, id)
	if err != nil {
		return ledger.Errf("delete due", "delete due: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Wrap("delete due", ledger.ErrNotFound)
	}
	slog.InfoContext(ctx, "due deleted from SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpDelete,
		log.FieldDueID, id)
	return nil
}

// AttachDueReceipt links a stored receipt to a due. An empty status leaves
// the current status untouched.
func (r *SQLiteRepository) AttachDueReceipt(ctx context.Context, id int64, ref, status string) error {
	query := `UPDATE dues SET attachment_ref = ?, status = ? WHERE id = ?`
	args := []any{ref, status, id}
	if status == "" {
		query = `UPDATE dues SET attachment_ref = ? WHERE id = ?`
		args = []any{ref, id}
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ledger.Errf("attach receipt", "update due: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Wrap("attach receipt", ledger.ErrNotFound)
	}
	return nil
}

// ListCharges implements ledger.ChargeStore.
func (r *SQLiteRepository) ListCharges(ctx context.Context, year int) ([]core.Charge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, period_month, period_year, category, amount_cents, attachment_ref
		FROM charges WHERE period_year = ? ORDER BY id`, year)
	if err != nil {
		return nil, ledger.Errf("list charges", "query charges: %w", err)
	}
	defer rows.Close()

	var charges []core.Charge
	for rows.Next() {
		var c core.Charge
		var month int
		if err := rows.Scan(&c.ID, &month, &c.Year, &c.Category, &c.Amount.Cents, &c.AttachmentRef); err != nil {
			return nil, ledger.Errf("list charges", "scan charge: %w", err)
		}
		c.Month = core.Month(month)
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Errf("list charges", "iterate charges: %w", err)
	}
	return charges, nil
}

func (r *SQLiteRepository) CreateCharge(ctx context.Context, month core.Month, year int, category string, amount core.Money) (core.Charge, error) {
	charge := core.Charge{
		Month:    month,
		Year:     year,
		Category: strings.TrimSpace(category),
		Amount:   amount,
	}
	if err := charge.Validate(); err != nil {
		return core.Charge{}, ledger.Wrap("create charge", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO charges (period_month, period_year, category, amount_cents)
		VALUES (?, ?, ?, ?)`,
		int(month), year, charge.Category, amount.Cents)
	if err != nil {
		return core.Charge{}, ledger.Errf("create charge", "insert charge: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Charge{}, ledger.Errf("create charge", "last insert id: %w", err)
	}
	charge.ID = id

	slog.InfoContext(ctx, "charge saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpCreate,
		log.FieldChargeID, charge.ID,
		log.FieldCategory, charge.Category,
		log.FieldMonth, month.Name(),
		log.FieldYear, year,
		log.FieldAmountCents, amount.Cents)
	return charge, nil
}

func (r *SQLiteRepository) DeleteCharge(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM charges WHERE id = ?`, id)
	if err != nil {
		return ledger.Errf("delete charge", "delete charge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Wrap("delete charge", ledger.ErrNotFound)
	}
	slog.InfoContext(ctx, "charge deleted from SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpDelete,
		log.FieldChargeID, id)
	return nil
}

func (r *SQLiteRepository) AttachChargeJustification(ctx context.Context, id int64, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE charges SET attachment_ref = ? WHERE id = ?`, ref, id)
	if err != nil {
		return ledger.Errf("attach justification", "update charge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Wrap("attach justification", ledger.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
