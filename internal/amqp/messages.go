package amqp

import (
	"encoding/json"
	"time"

	"syndic/internal/blob"
)

// OrphanMessage marks a stored object whose ledger record was deleted. The
// sweeper resolves the ref against the blob store and removes the object;
// nothing in the message depends on the record still existing.
type OrphanMessage struct {
	Bucket    blob.Bucket `json:"bucket"`
	Ref       string      `json:"ref"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewOrphanMessage(bucket blob.Bucket, ref string) *OrphanMessage {
	return &OrphanMessage{
		Bucket:    bucket,
		Ref:       ref,
		Timestamp: time.Now(),
	}
}

func (m *OrphanMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OrphanMessageFromJSON(data []byte) (*OrphanMessage, error) {
	var msg OrphanMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
