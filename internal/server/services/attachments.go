package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/dmitrijs2005/courier/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/courier/internal/server/storage"
)

// UploadSlot is where a client PUTs one attachment ciphertext.
type UploadSlot struct {
	RemoteID uint64
	URL      string
	Fields   map[string]string
}

type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   storage.Presigner
	storageKey  func() string
}

func NewAttachmentService(db *sql.DB, m repomanager.RepositoryManager, p storage.Presigner) *AttachmentService {
	return &AttachmentService{
		db:          db,
		repomanager: m,
		presigner:   p,
		storageKey:  storage.StorageKey,
	}
}

// RequestUploadSlot allocates a remote id for ownerID and presigns the
// upload of its ciphertext.
func (s *AttachmentService) RequestUploadSlot(ctx context.Context, ownerID, contentType string, size int64) (*UploadSlot, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size: %w", common.ErrInvalidArgument)
	}

	key := s.storageKey()
	url, fields, err := s.presigner.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	att, err := s.repomanager.Attachments(s.db).Create(ctx, &models.Attachment{
		OwnerID:     ownerID,
		StorageKey:  key,
		ContentType: contentType,
		Size:        size,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating attachment: %w", err)
	}

	return &UploadSlot{RemoteID: att.RemoteID, URL: url, Fields: fields}, nil
}

// GetURL presigns the download of remoteID's ciphertext.
func (s *AttachmentService) GetURL(ctx context.Context, remoteID uint64) (string, error) {
	att, err := s.repomanager.Attachments(s.db).Get(ctx, remoteID)
	if err != nil {
		return "", err
	}
	return s.presigner.PresignGet(ctx, att.StorageKey)
}
