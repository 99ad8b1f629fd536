// Package models defines the client-side data model of the delivery
// pipeline: attachments, outgoing messages, contacts and transcripts.
package models

import (
	"errors"
	"mime"
	"strings"
)

// ErrInvalidTransition is returned when a pointer state change would leave
// it both downloading and failed, or act on the wrong attachment kind.
var ErrInvalidTransition = errors.New("invalid attachment state transition")

// Kind tags the Attachment variant.
type Kind string

const (
	// KindPointer references remote ciphertext not yet present locally.
	KindPointer Kind = "pointer"
	// KindStream is an attachment whose plaintext lives in the local store.
	KindStream Kind = "stream"
)

// Attachment is a tagged variant over a remote pointer and a local stream.
// The fields shared by both variants live at the top level; exactly one of
// Pointer and Stream is set, according to Kind.
type Attachment struct {
	// ID is the internal identifier and the local content address.
	ID string `json:"id"`

	// RemoteID is the relay-assigned identifier. Zero until assigned.
	RemoteID uint64 `json:"remote_id"`

	// EncryptionKey is the 32-byte AEAD key used for this attachment only.
	EncryptionKey []byte `json:"encryption_key"`

	ContentType string `json:"content_type"`

	Kind    Kind          `json:"kind"`
	Pointer *PointerState `json:"pointer,omitempty"`
	Stream  *StreamState  `json:"stream,omitempty"`
}

// PointerState is the payload of a KindPointer attachment.
type PointerState struct {
	Relay            string `json:"relay,omitempty"`
	GroupAvatarOwner string `json:"group_avatar_owner,omitempty"`
	Downloading      bool   `json:"downloading"`
	Failed           bool   `json:"failed"`
}

// StreamState is the payload of a KindStream attachment. It never holds the
// bytes; they are read through the attachment store.
type StreamState struct {
	IsDownloaded bool   `json:"is_downloaded"`
	LocalPath    string `json:"local_path,omitempty"`
}

// NewPointer builds a pointer for remote ciphertext.
func NewPointer(id string, ref AttachmentRef) Attachment {
	return Attachment{
		ID:            id,
		RemoteID:      ref.RemoteID,
		EncryptionKey: ref.Key,
		ContentType:   ref.ContentType,
		Kind:          KindPointer,
		Pointer:       &PointerState{Relay: ref.Relay},
	}
}

// NewStream builds a stream whose bytes are stored under id.
func NewStream(id string, remoteID uint64, key []byte, contentType, localPath string, downloaded bool) Attachment {
	return Attachment{
		ID:            id,
		RemoteID:      remoteID,
		EncryptionKey: key,
		ContentType:   contentType,
		Kind:          KindStream,
		Stream:        &StreamState{IsDownloaded: downloaded, LocalPath: localPath},
	}
}

// Clone returns a deep copy.
func (a Attachment) Clone() Attachment {
	out := a
	out.EncryptionKey = append([]byte(nil), a.EncryptionKey...)
	if a.Pointer != nil {
		p := *a.Pointer
		out.Pointer = &p
	}
	if a.Stream != nil {
		s := *a.Stream
		out.Stream = &s
	}
	return out
}

// MarkDownloading flags a pointer as in flight and clears a previous failure.
func (a *Attachment) MarkDownloading() error {
	if a.Kind != KindPointer || a.Pointer == nil {
		return ErrInvalidTransition
	}
	a.Pointer.Downloading = true
	a.Pointer.Failed = false
	return nil
}

// MarkFailed flags a pointer as failed and clears the in-flight flag.
func (a *Attachment) MarkFailed() error {
	if a.Kind != KindPointer || a.Pointer == nil {
		return ErrInvalidTransition
	}
	a.Pointer.Downloading = false
	a.Pointer.Failed = true
	return nil
}

// ToStream converts a downloaded pointer into a stream, keeping the shared
// fields.
func (a Attachment) ToStream(localPath string) Attachment {
	return NewStream(a.ID, a.RemoteID, a.EncryptionKey, a.ContentType, localPath, true)
}

// Ref returns the reference carried inside outgoing envelopes.
func (a Attachment) Ref() AttachmentRef {
	ref := AttachmentRef{RemoteID: a.RemoteID, Key: a.EncryptionKey, ContentType: a.ContentType}
	if a.Pointer != nil {
		ref.Relay = a.Pointer.Relay
	}
	return ref
}

func (a Attachment) mediaType() string {
	mt, _, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(a.ContentType))
	}
	return mt
}

// IsAnimated reports whether the content is an animated image format.
func (a Attachment) IsAnimated() bool {
	return a.mediaType() == "image/gif"
}

// IsImage reports whether the content is a still image.
func (a Attachment) IsImage() bool {
	mt := a.mediaType()
	return strings.HasPrefix(mt, "image/") && !a.IsAnimated()
}

// IsVideo reports whether the content is a video.
func (a Attachment) IsVideo() bool {
	return strings.HasPrefix(a.mediaType(), "video/")
}

// AttachmentRef is what a recipient needs to fetch and decrypt an
// attachment.
type AttachmentRef struct {
	RemoteID    uint64 `json:"remote_id"`
	Key         []byte `json:"key"`
	ContentType string `json:"content_type"`
	Relay       string `json:"relay,omitempty"`
}
