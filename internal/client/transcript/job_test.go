package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/courier/internal/client/attachments"
	"github.com/dmitrijs2005/courier/internal/client/client/clienttest"
	"github.com/dmitrijs2005/courier/internal/client/inbound"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
	"github.com/dmitrijs2005/courier/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMeta struct{}

func (nopMeta) Save(context.Context, models.Attachment) error { return nil }

func newRetriever(t *testing.T, tr *clienttest.Transport, l logging.Logger) (*inbound.Retriever, *attachments.Store) {
	t.Helper()
	store, err := attachments.NewStore(t.TempDir())
	require.NoError(t, err)
	return inbound.NewRetriever(tr, store, nopMeta{}, l), store
}

func run(t *testing.T, j *Job, h func(models.Attachment)) (models.OutgoingMessage, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return j.Run(context.Background(), h).Await(ctx)
}

func TestRun_NoAttachmentSkipsHandler(t *testing.T) {
	r, _ := newRetriever(t, clienttest.New(), logging.Discard())
	j := NewJob(models.Transcript{MessageID: "m", Recipients: []string{"+1"}, Body: "hi"}, r, attachments.PointerID, logging.Discard())

	var called atomic.Bool
	msg, err := run(t, j, func(models.Attachment) { called.Store(true) })
	require.NoError(t, err)
	assert.False(t, called.Load())
	assert.Equal(t, models.StateSent, msg.State)
	assert.Equal(t, "hi", msg.Body)
}

func TestRun_AttachmentIsMaterialized(t *testing.T) {
	tr := clienttest.New()
	key := cryptox.NewAttachmentKey()
	ct, err := cryptox.EncryptAttachment([]byte("photo"), key)
	require.NoError(t, err)
	tr.Blobs[9] = ct

	r, store := newRetriever(t, tr, logging.Discard())
	j := NewJob(models.Transcript{MessageID: "m", Attachment: &models.AttachmentRef{RemoteID: 9, Key: key, ContentType: "image/jpeg"}},
		r, attachments.PointerID, logging.Discard())

	var got models.Attachment
	msg, err := run(t, j, func(a models.Attachment) { got = a })
	require.NoError(t, err)

	assert.Equal(t, models.KindStream, got.Kind)
	assert.True(t, got.IsImage())
	b, err := store.Read(got.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("photo"), b)
	require.NotNil(t, msg.Attachment)
	assert.EqualValues(t, 9, msg.Attachment.RemoteID)
}

func TestRun_ReplayReusesAttachmentID(t *testing.T) {
	tr := clienttest.New()
	key := cryptox.NewAttachmentKey()
	ct, err := cryptox.EncryptAttachment([]byte("photo"), key)
	require.NoError(t, err)
	tr.Blobs[9] = ct

	r, store := newRetriever(t, tr, logging.Discard())
	tx := models.Transcript{MessageID: "m", Attachment: &models.AttachmentRef{RemoteID: 9, Key: key, ContentType: "image/jpeg"}}

	var ids []string
	for range 2 {
		_, err := run(t, NewJob(tx, r, attachments.PointerID, logging.Discard()), func(a models.Attachment) { ids = append(ids, a.ID) })
		require.NoError(t, err)
	}

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_FetchFailureIsWarningOnly(t *testing.T) {
	tr := clienttest.New()
	tr.GetErr = &common.TransportError{Op: "blob get", Err: common.ErrUnavailable}

	var buf bytes.Buffer
	lr := logrus.New()
	lr.SetOutput(&buf)
	lr.SetFormatter(&logrus.JSONFormatter{})
	l := logging.NewLogrusLogger(lr)

	r, _ := newRetriever(t, tr, l)
	j := NewJob(models.Transcript{MessageID: "m7", Body: "b", Attachment: &models.AttachmentRef{RemoteID: 1, Key: cryptox.NewAttachmentKey()}},
		r, attachments.PointerID, l)

	var called atomic.Bool
	msg, err := run(t, j, func(models.Attachment) { called.Store(true) })
	require.NoError(t, err)
	assert.False(t, called.Load())
	assert.Equal(t, models.StateSent, msg.State)
	assert.Nil(t, msg.Attachment)

	var warned bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["level"] == "warning" && rec["msg"] == "transcript attachment unavailable" {
			warned = true
			assert.Equal(t, "m7", rec["message_id"])
		}
	}
	assert.True(t, warned)
}
