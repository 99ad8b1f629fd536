// Package models defines the relay's persisted records.
package models

import "time"

// Account is a registered identifier. DiscoveryToken is the hashed
// identifier that contact discovery matches against.
type Account struct {
	ID             string
	Identifier     string
	Relay          string
	DiscoveryToken string
	CreatedAt      time.Time
}

// Attachment is the server-side record of an uploaded ciphertext blob. The
// blob itself lives in object storage under StorageKey.
type Attachment struct {
	RemoteID    uint64
	OwnerID     string
	StorageKey  string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Envelope is a sealed payload waiting in a recipient's mailbox.
type Envelope struct {
	ID          string
	RecipientID string
	Sender      string
	Payload     []byte
	CreatedAt   time.Time
}
