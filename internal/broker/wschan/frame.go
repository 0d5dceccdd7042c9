package wschan

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"brokerlab/internal/broker"
)

// frame is the wire shape exchanged over the broadcast channel
type frame struct {
	Destination string            `json:"destination"`
	Payload     string            `json:"payload"`
	Headers     map[string]string `json:"headers,omitempty"`
	MessageID   string            `json:"messageId"`
	SentAt      time.Time         `json:"sentAt"`
}

func newFrame(destination, payload string, headers map[string]string) *frame {
	return &frame{
		Destination: destination,
		Payload:     payload,
		Headers:     headers,
		MessageID:   uuid.NewString(),
		SentAt:      time.Now(),
	}
}

func (f *frame) marshal() ([]byte, error) {
	return json.Marshal(f)
}

func parseFrame(data []byte) (*frame, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.MessageID == "" {
		f.MessageID = uuid.NewString()
	}
	return &f, nil
}

// toInbound converts the frame into the envelope shape. remote marks
// frames received from a peer rather than echoed from a local send.
func (f *frame) toInbound(remote bool) *broker.InboundMessage {
	receivedAt := f.SentAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	props := map[string]string{
		"remote": "false",
	}
	if remote {
		props["remote"] = "true"
	}

	return &broker.InboundMessage{
		Kind:        broker.KindSocket,
		Destination: f.Destination,
		Payload:     f.Payload,
		MessageID:   f.MessageID,
		ReceivedAt:  receivedAt,
		Properties:  props,
	}
}
