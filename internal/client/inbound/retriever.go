// Package inbound downloads and decrypts attachments referenced by received
// messages.
package inbound

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
	"github.com/dmitrijs2005/courier/internal/logging"
)

type ByteStore interface {
	Write(id string, data []byte) (string, error)
	Delete(id string) error
}

type MetadataStore interface {
	Save(ctx context.Context, a models.Attachment) error
}

type Retriever struct {
	transport client.BlobTransport
	store     ByteStore
	meta      MetadataStore
	logger    logging.Logger
}

func NewRetriever(t client.BlobTransport, store ByteStore, meta MetadataStore, l logging.Logger) *Retriever {
	return &Retriever{transport: t, store: store, meta: meta, logger: l.With("module", "inbound")}
}

// Retrieve materializes pointer into a stream. The pointer is persisted as
// downloading first and as failed if any step fails; the error is returned
// unchanged.
func (r *Retriever) Retrieve(ctx context.Context, pointer models.Attachment, messageID string) (models.Attachment, error) {
	log := r.logger.With("message_id", messageID, "attachment_id", pointer.ID, "remote_id", pointer.RemoteID)

	if pointer.Kind != models.KindPointer || pointer.Pointer == nil {
		return pointer, fmt.Errorf("%w: attachment %s is not a pointer", common.ErrInvalidArgument, pointer.ID)
	}
	if pointer.Pointer.Downloading {
		return pointer, common.ErrAttachmentBusy
	}
	pointer = pointer.Clone()

	if err := pointer.MarkDownloading(); err != nil {
		return pointer, err
	}
	if err := r.meta.Save(ctx, pointer); err != nil {
		return pointer, err
	}

	stream, err := r.fetch(ctx, pointer)
	if err != nil {
		_ = pointer.MarkFailed()
		if serr := r.meta.Save(ctx, pointer); serr != nil {
			log.Warn(ctx, "failed to persist failed pointer", "error", serr)
		}
		log.Warn(ctx, "attachment retrieval failed", "error", err)
		return pointer, err
	}

	log.Info(ctx, "attachment retrieved")
	return stream, nil
}

func (r *Retriever) fetch(ctx context.Context, pointer models.Attachment) (models.Attachment, error) {
	ciphertext, err := r.transport.GetBytes(ctx, pointer.RemoteID, pointer.Pointer.Relay)
	if err != nil {
		return models.Attachment{}, err
	}

	plaintext, err := cryptox.DecryptAttachment(ciphertext, pointer.EncryptionKey)
	if err != nil {
		return models.Attachment{}, err
	}

	path, err := r.store.Write(pointer.ID, plaintext)
	if err != nil {
		return models.Attachment{}, err
	}

	stream := pointer.ToStream(path)
	if err := r.meta.Save(ctx, stream); err != nil {
		_ = r.store.Delete(pointer.ID)
		return models.Attachment{}, err
	}
	return stream, nil
}
