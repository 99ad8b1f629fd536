// Package clienttest provides an in-memory client.Transport for tests.
package clienttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/common"
)

// Transport is an in-memory relay. Blobs, registrations and deliveries are
// recorded; the *Err fields and hooks inject failures.
type Transport struct {
	mu sync.Mutex

	nextRemoteID uint64
	Blobs        map[uint64][]byte
	slots        map[string]uint64

	// Registered maps discovery token to registered identifiers.
	Registered map[string][]string
	// Delivered maps recipient to payloads in arrival order.
	Delivered map[string][][]byte

	SlotErr    error
	PutErr     error
	GetErr     error
	LookupErr  error
	BatchErr   error
	DeliverErr map[string]error
	// DeliverHook runs before every delivery, outside the lock.
	DeliverHook func(recipient string)

	SlotCalls, PutCalls, GetCalls, LookupCalls, BatchCalls, DeliverCalls int
	SlotSizes                                                            []int64
	BatchSizes                                                           []int
}

var _ client.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{
		nextRemoteID: 1000,
		Blobs:        map[uint64][]byte{},
		slots:        map[string]uint64{},
		Registered:   map[string][]string{},
		Delivered:    map[string][][]byte{},
		DeliverErr:   map[string]error{},
	}
}

// Register makes identifier discoverable under token.
func (t *Transport) Register(token, identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Registered[token] = append(t.Registered[token], identifier)
}

func (t *Transport) RequestUploadSlot(_ context.Context, contentType string, size int64) (*client.UploadSlot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SlotCalls++
	t.SlotSizes = append(t.SlotSizes, size)
	if t.SlotErr != nil {
		return nil, t.SlotErr
	}
	t.nextRemoteID++
	url := fmt.Sprintf("mem://blob/%d", t.nextRemoteID)
	t.slots[url] = t.nextRemoteID
	return &client.UploadSlot{RemoteID: t.nextRemoteID, URL: url, Fields: map[string]string{"Content-Type": contentType}}, nil
}

func (t *Transport) PutBytes(_ context.Context, slot *client.UploadSlot, ciphertext []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.PutCalls++
	if t.PutErr != nil {
		return t.PutErr
	}
	id, ok := t.slots[slot.URL]
	if !ok {
		return &common.TransportError{Op: "blob put", Err: fmt.Errorf("unknown slot %s", slot.URL)}
	}
	t.Blobs[id] = append([]byte(nil), ciphertext...)
	return nil
}

func (t *Transport) GetBytes(_ context.Context, remoteID uint64, _ string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.GetCalls++
	if t.GetErr != nil {
		return nil, t.GetErr
	}
	b, ok := t.Blobs[remoteID]
	if !ok {
		return nil, common.NewNotFoundError("attachment")
	}
	return append([]byte(nil), b...), nil
}

func (t *Transport) DeliverEnvelope(_ context.Context, recipient string, envelope []byte) error {
	t.mu.Lock()
	hook := t.DeliverHook
	t.mu.Unlock()
	if hook != nil {
		hook(recipient)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.DeliverCalls++
	if err := t.DeliverErr[recipient]; err != nil {
		return err
	}
	if err := t.DeliverErr["*"]; err != nil {
		return err
	}
	t.Delivered[recipient] = append(t.Delivered[recipient], append([]byte(nil), envelope...))
	return nil
}

func (t *Transport) LookupRegisteredIdentifier(_ context.Context, token string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LookupCalls++
	if t.LookupErr != nil {
		return nil, t.LookupErr
	}
	ids, ok := t.Registered[token]
	if !ok {
		return nil, common.NewNotFoundError("lookup identifier")
	}
	return append([]string(nil), ids...), nil
}

func (t *Transport) BatchIntersect(_ context.Context, tokens []string) (map[string][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.BatchCalls++
	t.BatchSizes = append(t.BatchSizes, len(tokens))
	if t.BatchErr != nil {
		return nil, t.BatchErr
	}
	out := map[string][]string{}
	for _, tok := range tokens {
		if ids, ok := t.Registered[tok]; ok {
			out[tok] = append([]string(nil), ids...)
		}
	}
	return out, nil
}

func (t *Transport) Close() error { return nil }

// Counts returns a consistent snapshot of the call counters.
func (t *Transport) Counts() (slot, put, deliver int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.SlotCalls, t.PutCalls, t.DeliverCalls
}

// DeliveredTo returns the payloads delivered to recipient.
func (t *Transport) DeliveredTo(recipient string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.Delivered[recipient]...)
}
