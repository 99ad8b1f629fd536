// Package upload encrypts an attachment, uploads the ciphertext and attaches
// the resulting reference to an outgoing message.
package upload

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/async"
	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
	"github.com/dmitrijs2005/courier/internal/logging"
)

// ByteStore holds attachment plaintext by internal id.
type ByteStore interface {
	Write(id string, data []byte) (string, error)
	Delete(id string) error
}

// MetadataStore persists attachment metadata.
type MetadataStore interface {
	Save(ctx context.Context, a models.Attachment) error
	Delete(ctx context.Context, id string) error
}

type Coordinator struct {
	transport client.BlobTransport
	store     ByteStore
	meta      MetadataStore
	logger    logging.Logger
	newID     func() string
	newKey    func() []byte
}

func NewCoordinator(t client.BlobTransport, store ByteStore, meta MetadataStore, newID func() string, l logging.Logger) *Coordinator {
	return &Coordinator{
		transport: t,
		store:     store,
		meta:      meta,
		logger:    l.With("module", "upload"),
		newID:     newID,
		newKey:    cryptox.NewAttachmentKey,
	}
}

// Upload stores data locally, uploads it encrypted and resolves to msg with
// the attachment reference. On failure the local copy and its metadata are
// removed and the error is returned as produced by the failing step.
func (c *Coordinator) Upload(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
	return async.Go(ctx, func(ctx context.Context) (models.OutgoingMessage, error) {
		return c.run(ctx, data, contentType, msg, false)
	})
}

// UploadTemporary is Upload for data that must not outlive the upload: the
// local plaintext copy is removed whatever the outcome.
func (c *Coordinator) UploadTemporary(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
	return async.Go(ctx, func(ctx context.Context) (models.OutgoingMessage, error) {
		return c.run(ctx, data, contentType, msg, true)
	})
}

func (c *Coordinator) run(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage, temporary bool) (out models.OutgoingMessage, err error) {
	if contentType == "" {
		return msg, fmt.Errorf("%w: empty content type", common.ErrInvalidArgument)
	}

	id := c.newID()
	log := c.logger.With("message_id", msg.ID, "attachment_id", id)

	path, err := c.store.Write(id, data)
	if err != nil {
		return msg, err
	}

	defer func() {
		if err != nil || temporary {
			if derr := c.store.Delete(id); derr != nil {
				log.Warn(ctx, "failed to remove local attachment copy", "error", derr)
			}
		}
		if err != nil {
			out = msg.WithoutAttachment()
			if !temporary {
				if derr := c.meta.Delete(ctx, id); derr != nil {
					log.Warn(ctx, "failed to remove attachment metadata", "error", derr)
				}
			}
		}
	}()

	key := c.newKey()
	defer common.WipeByteArray(key)

	ciphertext, err := cryptox.EncryptAttachment(data, key)
	if err != nil {
		return msg, err
	}

	slot, err := c.transport.RequestUploadSlot(ctx, contentType, int64(len(ciphertext)))
	if err != nil {
		log.Warn(ctx, "upload slot request failed", "error", err)
		return msg, err
	}

	if err = c.transport.PutBytes(ctx, slot, ciphertext); err != nil {
		log.Warn(ctx, "ciphertext upload failed", "remote_id", slot.RemoteID, "error", err)
		return msg, err
	}

	localPath := path
	if temporary {
		localPath = ""
	}
	att := models.NewStream(id, slot.RemoteID, append([]byte(nil), key...), contentType, localPath, false)

	if !temporary {
		if err = c.meta.Save(ctx, att); err != nil {
			return msg, err
		}
	}

	log.Info(ctx, "attachment uploaded", "remote_id", slot.RemoteID, "size", len(ciphertext))
	return msg.WithAttachment(att), nil
}
