package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reasons carried by SyncRequestMessage.
const (
	ReasonManual   = "manual"
	ReasonStartup  = "startup"
	ReasonSchedule = "schedule"
)

// SyncRequestMessage asks the import worker to pull the upstream records
// into the local store. It carries no data; the worker reads the source itself.
type SyncRequestMessage struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewSyncRequestMessage(reason, requestedBy string) *SyncRequestMessage {
	return &SyncRequestMessage{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON decodes a message body.
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
