// Package app wires the client pipeline together: local database, attachment
// store, transport, contact discovery, upload coordination, sending and
// inbound retrieval.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/courier/internal/client/attachments"
	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/client/config"
	"github.com/dmitrijs2005/courier/internal/client/discovery"
	"github.com/dmitrijs2005/courier/internal/client/inbound"
	"github.com/dmitrijs2005/courier/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/courier/internal/client/sender"
	"github.com/dmitrijs2005/courier/internal/client/upload"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
	"github.com/dmitrijs2005/courier/internal/envelope"
	"github.com/dmitrijs2005/courier/internal/logging"
	"github.com/dmitrijs2005/courier/internal/netx"
	"github.com/google/uuid"
)

// Settings keys.
const (
	KeySalt        = "master_salt"
	KeyCheck       = "master_check"
	KeyIdentifier  = "identifier"
	KeyRelay       = "relay"
	KeyAccessToken = "access_token"
)

const checkPhrase = "courier"

// ErrWrongPassphrase is returned when the passphrase does not open the
// local metadata.
var ErrWrongPassphrase = fmt.Errorf("wrong passphrase: %w", common.ErrUnauthorized)

type App struct {
	Config    *config.Config
	Logger    logging.Logger
	DB        *sql.DB
	Transport *client.GRPCClient

	Settings    metadata.Repository
	Contacts    metadata.Repository
	Store       *attachments.Store
	Attachments *attachments.Repository

	Directory *discovery.Updater
	Uploader  *upload.Coordinator
	Sender    *sender.Sender
	Retriever *inbound.Retriever
	Sealer    envelope.Sealer

	masterKey []byte
}

// New opens local state under cfg.DataDir and connects to the relay.
// The passphrase unlocks sealed attachment metadata; it is not retained.
func New(ctx context.Context, cfg *config.Config, passphrase []byte, l logging.Logger) (*App, error) {
	store, err := attachments.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, cfg.DBPath())
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   l,
		DB:       db,
		Store:    store,
		Settings: metadata.NewSQLiteRepository(db, metadata.CollectionSettings),
		Contacts: metadata.NewSQLiteRepository(db, metadata.CollectionContacts),
		Sealer:   envelope.PassthroughSealer{},
	}

	if len(passphrase) > 0 {
		key, err := a.unlock(ctx, passphrase)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.masterKey = key
	}
	a.Attachments = attachments.NewRepository(
		metadata.NewSQLiteRepository(db, metadata.CollectionAttachments), a.masterKey)

	blobs := netxClient(cfg)
	transport, err := client.NewGRPCClient(cfg.ServerEndpointAddr, cfg.RequestTimeout, blobs)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.Transport = transport

	if err := a.restoreSession(ctx); err != nil {
		l.Warn(ctx, "stored session unavailable", "error", err)
	}

	a.Directory = discovery.NewUpdater(transport, cfg.DiscoveryBatchSize, cfg.DeliveryConcurrency, l)
	a.Uploader = upload.NewCoordinator(transport, store, a.Attachments, attachments.NewID, l)
	a.Sender = sender.NewSender(a.Uploader, a.Directory, transport, a.Sealer, cfg.DeliveryConcurrency, l)
	a.Retriever = inbound.NewRetriever(transport, store, a.Attachments, l)

	return a, nil
}

// unlock derives the master key and checks it against the stored verifier.
// On first use it creates the salt and the verifier.
func (a *App) unlock(ctx context.Context, passphrase []byte) ([]byte, error) {
	salt, err := a.Settings.Get(ctx, KeySalt)
	if errors.Is(err, common.ErrNotFound) {
		salt = common.GenerateRandByteArray(16)
		key := cryptox.DeriveMasterKey(passphrase, salt)
		check, nonce, err := cryptox.EncryptEntry(checkPhrase, key)
		if err != nil {
			return nil, err
		}
		if err := a.Settings.Set(ctx, KeySalt, salt); err != nil {
			return nil, err
		}
		if err := a.Settings.Set(ctx, KeyCheck, append(nonce, check...)); err != nil {
			return nil, err
		}
		return key, nil
	}
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)
	stored, err := a.Settings.Get(ctx, KeyCheck)
	if err != nil {
		return nil, err
	}
	if len(stored) < cryptox.NonceSize {
		return nil, fmt.Errorf("verifier: %w", common.ErrIntegrity)
	}
	var phrase string
	if err := cryptox.DecryptEntry(stored[cryptox.NonceSize:], stored[:cryptox.NonceSize], key, &phrase); err != nil || phrase != checkPhrase {
		return nil, ErrWrongPassphrase
	}
	return key, nil
}

func (a *App) restoreSession(ctx context.Context) error {
	identifier, err := a.Settings.Get(ctx, KeyIdentifier)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	relay, err := a.Settings.Get(ctx, KeyRelay)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	token, err := a.Settings.Get(ctx, KeyAccessToken)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	a.Transport.SetSession(string(identifier), string(relay), string(token))
	return nil
}

// Identifier returns the registered local identifier, or "" before register.
func (a *App) Identifier(ctx context.Context) string {
	b, err := a.Settings.Get(ctx, KeyIdentifier)
	if err != nil {
		return ""
	}
	return string(b)
}

// Register creates an account on the relay and remembers the session.
func (a *App) Register(ctx context.Context, identifier, relay string) error {
	token, err := a.Transport.Register(ctx, identifier, relay)
	if err != nil {
		return err
	}
	for k, v := range map[string]string{KeyIdentifier: identifier, KeyRelay: relay, KeyAccessToken: token} {
		if err := a.Settings.Set(ctx, k, []byte(v)); err != nil {
			return err
		}
	}
	return nil
}

// NewMessageID returns an id for a fresh outgoing message.
func NewMessageID() string {
	return uuid.NewString()
}

func (a *App) Close() error {
	if a.masterKey != nil {
		common.WipeByteArray(a.masterKey)
	}
	var errs []error
	if a.Transport != nil {
		errs = append(errs, a.Transport.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func netxClient(cfg *config.Config) client.BlobIO {
	return netx.NewBlobClient(&http.Client{Timeout: cfg.RequestTimeout}, netx.DefaultRetryPolicy())
}
