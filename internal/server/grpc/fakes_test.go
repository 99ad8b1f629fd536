package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/dmitrijs2005/courier/internal/server/services"
)

type fakeAccounts struct {
	registered map[string]string // identifier -> account id
	err        error
}

func (f *fakeAccounts) Register(_ context.Context, identifier, _ string) (*models.Account, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	id := "acc-" + identifier
	f.registered[identifier] = id
	return &models.Account{ID: id, Identifier: identifier}, "issued-elsewhere", nil
}

func (f *fakeAccounts) Lookup(_ context.Context, token string) ([]string, error) {
	if token == "known" {
		return []string{"+100"}, nil
	}
	return nil, common.NewNotFoundError("identifier")
}

func (f *fakeAccounts) BatchIntersect(_ context.Context, tokens []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, t := range tokens {
		if t == "known" {
			out[t] = []string{"+100"}
		}
	}
	return out, nil
}

type fakeAttachments struct {
	owner string
	err   error
}

func (f *fakeAttachments) RequestUploadSlot(_ context.Context, ownerID, contentType string, _ int64) (*services.UploadSlot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.owner = ownerID
	return &services.UploadSlot{RemoteID: 7, URL: "http://s3/put", Fields: map[string]string{"Content-Type": contentType}}, nil
}

func (f *fakeAttachments) GetURL(_ context.Context, remoteID uint64) (string, error) {
	if remoteID != 7 {
		return "", common.NewNotFoundError("attachment")
	}
	return "http://s3/get", nil
}

type fakeMailbox struct {
	queued map[string][]*models.Envelope // account id -> envelopes
}

func (f *fakeMailbox) Deliver(_ context.Context, sender, recipient string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", common.ErrInvalidArgument
	}
	if recipient != "+2" {
		return "", common.NewNotFoundError("account")
	}
	e := &models.Envelope{ID: "env-1", RecipientID: "acc-+2", Sender: sender, Payload: payload, CreatedAt: time.Unix(100, 0).UTC()}
	f.queued[e.RecipientID] = append(f.queued[e.RecipientID], e)
	return e.ID, nil
}

func (f *fakeMailbox) Fetch(_ context.Context, accountID string, _ int) ([]*models.Envelope, error) {
	out := f.queued[accountID]
	delete(f.queued, accountID)
	return out, nil
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{queued: map[string][]*models.Envelope{}}
}
