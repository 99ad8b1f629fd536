package client

import (
	"context"
	"time"
)

// UploadSlot is a one-time destination for attachment ciphertext.
type UploadSlot struct {
	RemoteID uint64
	URL      string
	// Fields are headers the upload must carry, e.g. the signed Content-Type.
	Fields map[string]string
}

// InboundEnvelope is a sealed payload waiting in the local account's mailbox.
type InboundEnvelope struct {
	ID        string
	Sender    string
	Payload   []byte
	CreatedAt time.Time
}

type BlobTransport interface {
	RequestUploadSlot(ctx context.Context, contentType string, size int64) (*UploadSlot, error)
	PutBytes(ctx context.Context, slot *UploadSlot, ciphertext []byte) error
	GetBytes(ctx context.Context, remoteID uint64, relay string) ([]byte, error)
}

type DirectoryTransport interface {
	// LookupRegisteredIdentifier returns the registered identifiers behind
	// token or a *common.NotFoundError.
	LookupRegisteredIdentifier(ctx context.Context, token string) ([]string, error)
	// BatchIntersect returns matches for registered tokens only.
	BatchIntersect(ctx context.Context, tokens []string) (map[string][]string, error)
}

type MessageTransport interface {
	DeliverEnvelope(ctx context.Context, recipient string, envelope []byte) error
}

// Transport is everything the pipeline needs from the network.
type Transport interface {
	BlobTransport
	DirectoryTransport
	MessageTransport
	Close() error
}
