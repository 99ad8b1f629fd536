package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/courier/internal/client/app"
	"github.com/dmitrijs2005/courier/internal/client/attachments"
	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/client/config"
	"github.com/dmitrijs2005/courier/internal/client/discovery"
	"github.com/dmitrijs2005/courier/internal/client/inbound"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/courier/internal/client/sender"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/envelope"
	"github.com/dmitrijs2005/courier/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	onlineCheckInterval = 30 * time.Second
	inboxLimit          = 50
)

type account interface {
	Register(ctx context.Context, identifier, relay string) error
	Identifier(ctx context.Context) string
}

type mailbox interface {
	Ping(ctx context.Context) error
	FetchEnvelopes(ctx context.Context, limit int) ([]client.InboundEnvelope, error)
}

type App struct {
	core *app.App

	account     account
	mailbox     mailbox
	sender      *sender.Sender
	directory   *discovery.Updater
	store       *attachments.Store
	attachments *attachments.Repository
	contacts    metadata.Repository
	retriever   *inbound.Retriever
	sealer      envelope.Sealer
	logger      logging.Logger

	reader *bufio.Reader
	out    io.Writer

	mu     sync.Mutex
	outbox map[string]models.OutgoingMessage
	Mode   Mode
}

// NewApp prompts for the local passphrase and opens the client state.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, os.Stderr, c.Debug)

	passphrase, err := GetPassphrase(os.Stdout)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(passphrase)

	core, err := app.New(ctx, c, passphrase, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		core:        core,
		account:     core,
		mailbox:     core.Transport,
		sender:      core.Sender,
		directory:   core.Directory,
		store:       core.Store,
		attachments: core.Attachments,
		contacts:    core.Contacts,
		retriever:   core.Retriever,
		sealer:      core.Sealer,
		logger:      logger,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		outbox:      map[string]models.OutgoingMessage{},
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// Run starts the connectivity watcher and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.core != nil {
			_ = a.core.Close()
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)

	fmt.Fprintln(a.out, "Welcome to courier (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isRegistered(ctx context.Context) bool {
	return a.account.Identifier(ctx) != ""
}

func (a *App) status() string {
	s := a.account.Identifier(context.Background())
	if m := a.mode(); m != "" {
		if s != "" {
			s += " "
		}
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the relay every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.mailbox.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) remember(msg models.OutgoingMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outbox[msg.ID] = msg
}

func (a *App) recall(id string) (models.OutgoingMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg, ok := a.outbox[id]
	return msg, ok
}
