package models

import (
	"maps"
	"slices"
	"time"
)

// MessageState is the send state of an OutgoingMessage. It is independent of
// whether the message carries an attachment reference.
type MessageState string

const (
	StateUnsent    MessageState = "unsent"
	StateUploading MessageState = "uploading"
	StateUploaded  MessageState = "uploaded"
	StateSending   MessageState = "sending"
	StateSent      MessageState = "sent"
	StateFailed    MessageState = "failed"
)

// DeliveryStatus is the per-recipient outcome of the last send attempt.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// OutgoingMessage is an immutable value; every pipeline step returns an
// updated copy.
type OutgoingMessage struct {
	ID         string
	Recipients []string
	Body       string
	Timestamp  time.Time

	// AttachmentID is the internal id of the local attachment, if any.
	AttachmentID string
	// Attachment is set once the ciphertext has been uploaded.
	Attachment *AttachmentRef

	State      MessageState
	Deliveries map[string]DeliveryStatus
}

// Clone returns a deep copy.
func (m OutgoingMessage) Clone() OutgoingMessage {
	out := m
	out.Recipients = slices.Clone(m.Recipients)
	out.Deliveries = maps.Clone(m.Deliveries)
	if m.Attachment != nil {
		ref := *m.Attachment
		ref.Key = slices.Clone(m.Attachment.Key)
		out.Attachment = &ref
	}
	return out
}

// HasAttachment reports whether an uploaded reference is attached.
func (m OutgoingMessage) HasAttachment() bool {
	return m.Attachment != nil
}

// WithAttachment returns a copy referencing the uploaded attachment.
func (m OutgoingMessage) WithAttachment(a Attachment) OutgoingMessage {
	out := m.Clone()
	ref := a.Ref()
	ref.Key = slices.Clone(ref.Key)
	out.Attachment = &ref
	out.AttachmentID = a.ID
	return out
}

// WithoutAttachment returns a copy with no attachment reference.
func (m OutgoingMessage) WithoutAttachment() OutgoingMessage {
	out := m.Clone()
	out.Attachment = nil
	out.AttachmentID = ""
	return out
}

// WithState returns a copy in state s.
func (m OutgoingMessage) WithState(s MessageState) OutgoingMessage {
	out := m.Clone()
	out.State = s
	return out
}

// WithDelivery returns a copy recording the outcome for one recipient.
func (m OutgoingMessage) WithDelivery(recipient string, s DeliveryStatus) OutgoingMessage {
	out := m.Clone()
	if out.Deliveries == nil {
		out.Deliveries = make(map[string]DeliveryStatus, len(m.Recipients))
	}
	out.Deliveries[recipient] = s
	return out
}

// Pending returns the recipients not yet delivered, in order. A recipient
// listed more than once is returned once.
func (m OutgoingMessage) Pending() []string {
	var out []string
	seen := make(map[string]struct{}, len(m.Recipients))
	for _, r := range m.Recipients {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		if m.Deliveries[r] != DeliveryDelivered {
			out = append(out, r)
		}
	}
	return out
}
