package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
)

// sealed is the at-rest form of a metadata record when a master key is set.
type sealed struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// Repository persists attachment metadata, including encryption keys, so a
// stream can be decrypted again without the network.
type Repository struct {
	kv        metadata.Repository
	masterKey []byte
}

// NewRepository returns a repository over kv. A non-nil masterKey seals each
// record with AES-GCM before it is stored.
func NewRepository(kv metadata.Repository, masterKey []byte) *Repository {
	return &Repository{kv: kv, masterKey: masterKey}
}

func (r *Repository) encode(a models.Attachment) ([]byte, error) {
	if r.masterKey == nil {
		return json.Marshal(a)
	}
	ct, nonce, err := cryptox.EncryptEntry(a, r.masterKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealed{Nonce: nonce, Data: ct})
}

func (r *Repository) decode(b []byte) (models.Attachment, error) {
	var a models.Attachment
	if r.masterKey == nil {
		return a, json.Unmarshal(b, &a)
	}
	var s sealed
	if err := json.Unmarshal(b, &s); err != nil {
		return a, err
	}
	err := cryptox.DecryptEntry(s.Data, s.Nonce, r.masterKey, &a)
	return a, err
}

func (r *Repository) Save(ctx context.Context, a models.Attachment) error {
	b, err := r.encode(a)
	if err != nil {
		return &common.StorageError{Op: "encode metadata", ID: a.ID, Err: err}
	}
	if err := r.kv.Set(ctx, a.ID, b); err != nil {
		return &common.StorageError{Op: "save metadata", ID: a.ID, Err: err}
	}
	return nil
}

// Get returns the metadata for id or a *common.NotFoundError.
func (r *Repository) Get(ctx context.Context, id string) (models.Attachment, error) {
	b, err := r.kv.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return models.Attachment{}, common.NewNotFoundError("attachment metadata " + id)
	}
	if err != nil {
		return models.Attachment{}, &common.StorageError{Op: "load metadata", ID: id, Err: err}
	}
	a, err := r.decode(b)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("decode metadata %s: %w", id, err)
	}
	return a, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.kv.Delete(ctx, id); err != nil {
		return &common.StorageError{Op: "delete metadata", ID: id, Err: err}
	}
	return nil
}

// List returns every readable record. Records that fail to decode are
// skipped and counted.
func (r *Repository) List(ctx context.Context) ([]models.Attachment, int, error) {
	all, err := r.kv.List(ctx)
	if err != nil {
		return nil, 0, &common.StorageError{Op: "list metadata", Err: err}
	}
	out := make([]models.Attachment, 0, len(all))
	skipped := 0
	for _, b := range all {
		a, err := r.decode(b)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, a)
	}
	return out, skipped, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	if err := r.kv.Clear(ctx); err != nil {
		return &common.StorageError{Op: "clear metadata", Err: err}
	}
	return nil
}
