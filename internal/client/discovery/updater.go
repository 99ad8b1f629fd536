// Package discovery finds which local contacts are registered with the
// relay. Identifiers leave the device only as truncated hashes.
package discovery

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/courier/internal/async"
	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
	"github.com/dmitrijs2005/courier/internal/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultBatchSize is the number of tokens per intersection request.
const DefaultBatchSize = 2048

type Updater struct {
	transport   client.DirectoryTransport
	batchSize   int
	concurrency int
	logger      logging.Logger

	lookups singleflight.Group

	mu         sync.RWMutex
	matches    map[string][]string
	registered map[string]struct{}
	lookedUp   map[string]struct{}
}

// NewUpdater returns an Updater with an empty cache. batchSize and
// concurrency fall back to defaults when not positive.
func NewUpdater(t client.DirectoryTransport, batchSize, concurrency int, l logging.Logger) *Updater {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Updater{
		transport:   t,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      l.With("module", "discovery"),
		matches:     map[string][]string{},
		registered:  map[string]struct{}{},
		lookedUp:    map[string]struct{}{},
	}
}

func normalize(identifier string) string {
	return strings.TrimSpace(identifier)
}

// Lookup resolves one identifier synchronously. A definitely unregistered
// identifier yields a *common.NotFoundError; network failures a
// *common.TransportError. Concurrent lookups of one identifier share a
// single request.
func (u *Updater) Lookup(ctx context.Context, identifier string) ([]string, error) {
	id := normalize(identifier)
	if id == "" {
		return nil, common.NewNotFoundError("identifier")
	}
	token := cryptox.DiscoveryToken(id)

	v, err, _ := u.lookups.Do(token, func() (any, error) {
		ids, err := u.transport.LookupRegisteredIdentifier(ctx, token)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, common.NewNotFoundError("identifier")
		}
		return ids, nil
	})
	if err != nil {
		var nf *common.NotFoundError
		if errors.Is(err, common.ErrNotFound) && !errors.As(err, &nf) {
			return nil, common.NewNotFoundError("identifier")
		}
		return nil, err
	}

	ids := slices.Clone(v.([]string))
	u.mu.Lock()
	for _, r := range ids {
		u.lookedUp[normalize(r)] = struct{}{}
	}
	u.mu.Unlock()
	return ids, nil
}

// LookupIdentifier is the asynchronous form of Lookup.
func (u *Updater) LookupIdentifier(ctx context.Context, identifier string) *async.Future[[]string] {
	return async.Go(ctx, func(ctx context.Context) ([]string, error) {
		return u.Lookup(ctx, identifier)
	})
}

// UpdateIntersection sends the hashed identifiers of contacts in batches and
// replaces the cache once every batch has succeeded. On failure the
// previous cache is kept.
func (u *Updater) UpdateIntersection(ctx context.Context, contacts []models.Contact) error {
	owners := map[string][]string{}
	for _, c := range contacts {
		for _, raw := range c.Identifiers {
			id := normalize(raw)
			if id == "" {
				continue
			}
			tok := cryptox.DiscoveryToken(id)
			if !slices.Contains(owners[tok], c.ID) {
				owners[tok] = append(owners[tok], c.ID)
			}
		}
	}

	tokens := make([]string, 0, len(owners))
	for tok := range owners {
		tokens = append(tokens, tok)
	}
	slices.Sort(tokens)

	batches := slices.Collect(slices.Chunk(tokens, u.batchSize))
	results := make([]map[string][]string, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			m, err := u.transport.BatchIntersect(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.logger.Warn(ctx, "contact intersection failed", "batches", len(batches), "error", err)
		return err
	}

	matches := map[string][]string{}
	registered := map[string]struct{}{}
	for _, m := range results {
		for tok, ids := range m {
			contactIDs, ok := owners[tok]
			if !ok {
				continue
			}
			for _, r := range ids {
				registered[normalize(r)] = struct{}{}
			}
			for _, cid := range contactIDs {
				for _, r := range ids {
					if !slices.Contains(matches[cid], r) {
						matches[cid] = append(matches[cid], r)
					}
				}
			}
		}
	}

	u.mu.Lock()
	u.matches = matches
	u.registered = registered
	u.mu.Unlock()

	u.logger.Info(ctx, "contact intersection updated",
		"contacts", len(contacts), "tokens", len(tokens), "batches", len(batches), "matched", len(matches))
	return nil
}

// Intersect is the asynchronous form of UpdateIntersection.
func (u *Updater) Intersect(ctx context.Context, contacts []models.Contact) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.UpdateIntersection(ctx, contacts)
	})
}

// IsRegistered reports whether identifier is known to be registered, from
// the last intersection or a later lookup.
func (u *Updater) IsRegistered(identifier string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id := normalize(identifier)
	if _, ok := u.registered[id]; ok {
		return true
	}
	_, ok := u.lookedUp[id]
	return ok
}

// Matches returns the registered identifiers of one contact.
func (u *Updater) Matches(contactID string) []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return slices.Clone(u.matches[contactID])
}

// Len returns the number of contacts with at least one match.
func (u *Updater) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.matches)
}
