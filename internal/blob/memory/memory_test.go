package memory

import (
	"context"
	"errors"
	"testing"

	"syndic/internal/blob"
)

func TestUploadAndPublicURL(t *testing.T) {
	s := New("https://files.example.test/")
	ref, err := s.Upload(context.Background(), blob.BucketReceipts, "1_Janvier_2024_42.pdf", []byte("%PDF"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	data, ct, ok := s.Get(ref)
	if !ok || string(data) != "%PDF" || ct != "application/pdf" {
		t.Fatalf("stored object = %q %q %v", data, ct, ok)
	}
	want := "https://files.example.test/recus-cotisations/1_Janvier_2024_42.pdf"
	if got := s.PublicURL(ref); got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}

func TestUploadCollision(t *testing.T) {
	s := New("http://x")
	ctx := context.Background()
	if _, err := s.Upload(ctx, blob.BucketReceipts, "p.pdf", []byte("a"), "application/pdf"); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	_, err := s.Upload(ctx, blob.BucketReceipts, "p.pdf", []byte("b"), "application/pdf")
	if !errors.Is(err, blob.ErrPathExists) {
		t.Fatalf("expected collision error, got %v", err)
	}
	if !blob.IsStorageError(err) {
		t.Fatalf("collision should be a StorageError")
	}
	// The first object is untouched.
	data, _, _ := s.Get(blob.Ref("recus-cotisations/p.pdf"))
	if string(data) != "a" {
		t.Fatalf("collision overwrote object: %q", data)
	}
	// Same path in the other bucket does not collide.
	if _, err := s.Upload(ctx, blob.BucketJustifications, "p.pdf", []byte("c"), "application/pdf"); err != nil {
		t.Fatalf("cross-bucket upload: %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := New("http://x")
	ctx := context.Background()
	ref, err := s.Upload(ctx, blob.BucketJustifications, "j.pdf", []byte("x"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := s.Remove(ctx, ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("object not removed")
	}
	if err := s.Remove(ctx, ref); !errors.Is(err, blob.ErrObjectMissing) {
		t.Fatalf("second remove should report missing, got %v", err)
	}
}
