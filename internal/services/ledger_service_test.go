package services

import (
	"context"
	"errors"
	"testing"

	"syndic/internal/amqp"
	"syndic/internal/blob"
	blobmem "syndic/internal/blob/memory"
	"syndic/internal/core"
	"syndic/internal/ledger"
	ledgermem "syndic/internal/ledger/memory"
)

type fakePublisher struct {
	messages []*amqp.OrphanMessage
	err      error
}

func (p *fakePublisher) PublishOrphan(_ context.Context, msg *amqp.OrphanMessage) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newService(pub OrphanPublisher) (*LedgerService, *ledgermem.Store) {
	repo := ledgermem.New([]core.Unit{
		{ID: 1, Name: "Appartement 1"},
		{ID: 2, Name: "Appartement 2"},
		{ID: 99, Name: "Syndic"},
	}, "Syndic")
	return NewLedgerService(repo, blobmem.New("http://blob.local"), pub), repo
}

func TestSnapshotLoadsYear(t *testing.T) {
	svc, repo := newService(nil)
	ctx := context.Background()

	if _, err := repo.CreateDue(ctx, 1, core.Janvier, 2024, core.Money{Cents: 50000}, ""); err != nil {
		t.Fatalf("CreateDue: %v", err)
	}
	if _, err := repo.CreateDue(ctx, 1, core.Janvier, 2023, core.Money{Cents: 45000}, ""); err != nil {
		t.Fatalf("CreateDue 2023: %v", err)
	}
	if _, err := repo.CreateCharge(ctx, core.Janvier, 2024, "Eau", core.Money{Cents: 12000}); err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}

	snap, err := svc.Snapshot(ctx, 2024)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Year != 2024 {
		t.Fatalf("year = %d, want 2024", snap.Year)
	}
	if len(snap.Units) != 2 {
		t.Fatalf("got %d units, want 2 residents", len(snap.Units))
	}
	for _, u := range snap.Units {
		if u.Name == "Syndic" {
			t.Fatal("administrative unit in snapshot")
		}
	}
	if len(snap.Dues) != 1 || snap.Dues[0].Year != 2024 {
		t.Fatalf("dues = %+v, want only 2024", snap.Dues)
	}
	if len(snap.Charges) != 1 {
		t.Fatalf("charges = %+v, want 1", snap.Charges)
	}
}

type failingDues struct {
	*ledgermem.Store
	err error
}

func (r *failingDues) ListDues(context.Context, int) ([]core.Due, error) {
	return nil, r.err
}

func TestSnapshotFailsWhole(t *testing.T) {
	repo := &failingDues{
		Store: ledgermem.New([]core.Unit{{ID: 1, Name: "Appartement 1"}}, "Syndic"),
		err:   errors.New("data service unavailable"),
	}
	svc := NewLedgerService(repo, blobmem.New("http://blob.local"), nil)

	snap, err := svc.Snapshot(context.Background(), 2024)
	if err == nil {
		t.Fatal("expected snapshot error")
	}
	if snap.Units != nil || snap.Dues != nil || snap.Charges != nil {
		t.Fatalf("partial snapshot escaped: %+v", snap)
	}
}

func TestRecordDueParsesDecimal(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	due, err := svc.RecordDue(ctx, 1, core.Janvier, 2024, "500,00")
	if err != nil {
		t.Fatalf("RecordDue: %v", err)
	}
	if due.Amount.Cents != 50000 {
		t.Fatalf("amount = %d, want 50000", due.Amount.Cents)
	}
	if due.Status != core.StatusPublished {
		t.Fatalf("status = %q, want %q", due.Status, core.StatusPublished)
	}
}

func TestRecordDueValidation(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		unitID int64
		month  core.Month
		amount string
	}{
		{"garbage amount", 1, core.Janvier, "abc"},
		{"negative amount", 1, core.Janvier, "-12"},
		{"empty amount", 1, core.Janvier, ""},
		{"invalid month", 1, core.Month(13), "100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordDue(ctx, tc.unitID, tc.month, 2024, tc.amount)
			if !IsValidationError(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestRecordDueDuplicatePeriod(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	if _, err := svc.RecordDue(ctx, 1, core.Mars, 2024, "500"); err != nil {
		t.Fatalf("first RecordDue: %v", err)
	}
	_, err := svc.RecordDue(ctx, 1, core.Mars, 2024, "500")
	if !errors.Is(err, ledger.ErrDuplicatePeriod) {
		t.Fatalf("err = %v, want ErrDuplicatePeriod", err)
	}
}

func TestRemoveDuePublishesOrphan(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo := newService(pub)
	ctx := context.Background()

	due, _ := repo.CreateDue(ctx, 1, core.Janvier, 2024, core.Money{Cents: 50000}, "drive-file-id")
	if err := svc.RemoveDue(ctx, due); err != nil {
		t.Fatalf("RemoveDue: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("got %d orphan messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Bucket != blob.BucketReceipts || msg.Ref != "drive-file-id" {
		t.Fatalf("message = %+v", msg)
	}

	dues, _ := repo.ListDues(ctx, 2024)
	if len(dues) != 0 {
		t.Fatal("due not deleted")
	}
}

func TestRemoveDueWithoutAttachmentPublishesNothing(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo := newService(pub)
	ctx := context.Background()

	due, _ := repo.CreateDue(ctx, 1, core.Fevrier, 2024, core.Money{Cents: 50000}, "")
	if err := svc.RemoveDue(ctx, due); err != nil {
		t.Fatalf("RemoveDue: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("unexpected orphan messages: %+v", pub.messages)
	}
}

func TestRemoveDuePublishFailureDoesNotFailDelete(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, repo := newService(pub)
	ctx := context.Background()

	due, _ := repo.CreateDue(ctx, 1, core.Avril, 2024, core.Money{Cents: 50000}, "drive-file-id")
	if err := svc.RemoveDue(ctx, due); err != nil {
		t.Fatalf("RemoveDue must not fail on publish error: %v", err)
	}
	dues, _ := repo.ListDues(ctx, 2024)
	if len(dues) != 0 {
		t.Fatal("due not deleted")
	}
}

func TestRemoveChargeUsesJustificationBucket(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo := newService(pub)
	ctx := context.Background()

	charge, _ := repo.CreateCharge(ctx, core.Janvier, 2024, "Eau", core.Money{Cents: 12000})
	if err := repo.AttachChargeJustification(ctx, charge.ID, "justif-ref"); err != nil {
		t.Fatalf("AttachChargeJustification: %v", err)
	}
	charge.AttachmentRef = "justif-ref"

	if err := svc.RemoveCharge(ctx, charge); err != nil {
		t.Fatalf("RemoveCharge: %v", err)
	}
	if len(pub.messages) != 1 || pub.messages[0].Bucket != blob.BucketJustifications {
		t.Fatalf("messages = %+v, want one for justification bucket", pub.messages)
	}
}

func TestRemoveMissingDue(t *testing.T) {
	svc, _ := newService(nil)
	err := svc.RemoveDue(context.Background(), core.Due{ID: 9999})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAttachmentURL(t *testing.T) {
	svc, _ := newService(nil)
	if got := svc.AttachmentURL(""); got != "" {
		t.Fatalf("empty ref URL = %q, want empty", got)
	}
	if got := svc.AttachmentURL("recus-cotisations/1_Janvier_2024.pdf"); got != "http://blob.local/recus-cotisations/1_Janvier_2024.pdf" {
		t.Fatalf("URL = %q", got)
	}
}
