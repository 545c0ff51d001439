package amqp

import (
	"testing"

	"syndic/internal/blob"
)

func TestOrphanMessageWireFormat(t *testing.T) {
	msg := NewOrphanMessage(blob.BucketReceipts, "drive-file-id")
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := OrphanMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Bucket != blob.BucketReceipts || got.Ref != "drive-file-id" {
		t.Fatalf("roundtrip lost fields: %+v", got)
	}

	if _, err := OrphanMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
