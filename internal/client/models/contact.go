package models

import "time"

// Contact is a local address-book entry. Identifiers are phone numbers or
// other handles that may map to registered accounts.
type Contact struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Identifiers []string `json:"identifiers"`
}

// Transcript is a record of a message sent from another device of the same
// account, replayed locally.
type Transcript struct {
	MessageID  string
	Recipients []string
	Body       string
	Timestamp  time.Time
	Attachment *AttachmentRef
}

// Message converts the transcript into the reconciled outgoing message.
func (t Transcript) Message() OutgoingMessage {
	return OutgoingMessage{
		ID:         t.MessageID,
		Recipients: append([]string(nil), t.Recipients...),
		Body:       t.Body,
		Timestamp:  t.Timestamp,
		State:      StateSent,
	}
}
