// Package envelope builds the per-recipient payload of a message. Session
// encryption is an opaque Sealer supplied by the caller.
package envelope

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/common"
)

// Version of the Content encoding.
const Version = 1

// Content is the plaintext of an envelope.
type Content struct {
	Version    int                   `json:"v"`
	MessageID  string                `json:"message_id"`
	Recipients []string              `json:"recipients,omitempty"`
	Body       string                `json:"body,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
	Attachment *models.AttachmentRef `json:"attachment,omitempty"`
}

// FromMessage builds envelope content for msg.
func FromMessage(msg models.OutgoingMessage) Content {
	return Content{
		Version:    Version,
		MessageID:  msg.ID,
		Recipients: append([]string(nil), msg.Recipients...),
		Body:       msg.Body,
		Timestamp:  msg.Timestamp.UTC(),
		Attachment: msg.Attachment,
	}
}

func (c Content) Encode() ([]byte, error) {
	return json.Marshal(c)
}

func Decode(b []byte) (Content, error) {
	var c Content
	if err := json.Unmarshal(b, &c); err != nil {
		return Content{}, fmt.Errorf("%w: envelope: %v", common.ErrInvalidArgument, err)
	}
	if c.Version != Version {
		return Content{}, fmt.Errorf("%w: envelope version %d", common.ErrInvalidArgument, c.Version)
	}
	return c, nil
}

// Sealer encrypts content for one recipient and opens envelopes addressed
// to the local account.
type Sealer interface {
	Seal(ctx context.Context, recipient string, plaintext []byte) ([]byte, error)
	Open(ctx context.Context, sender string, sealed []byte) ([]byte, error)
}

// PassthroughSealer leaves payloads unchanged. It stands in for the
// session protocol in development and tests.
type PassthroughSealer struct{}

func (PassthroughSealer) Seal(_ context.Context, _ string, plaintext []byte) ([]byte, error) {
	return append([]byte(nil), plaintext...), nil
}

func (PassthroughSealer) Open(_ context.Context, _ string, sealed []byte) ([]byte, error) {
	return append([]byte(nil), sealed...), nil
}
