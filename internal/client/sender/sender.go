// Package sender drives an outgoing message through upload and delivery.
package sender

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/courier/internal/async"
	"github.com/dmitrijs2005/courier/internal/client/client"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/envelope"
	"github.com/dmitrijs2005/courier/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Uploader attaches uploaded ciphertext references to messages.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage]
	UploadTemporary(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage]
}

// Directory resolves recipients.
type Directory interface {
	IsRegistered(identifier string) bool
	Lookup(ctx context.Context, identifier string) ([]string, error)
}

type Sender struct {
	uploader    Uploader
	directory   Directory
	transport   client.MessageTransport
	sealer      envelope.Sealer
	concurrency int
	logger      logging.Logger
}

func NewSender(u Uploader, d Directory, t client.MessageTransport, s envelope.Sealer, concurrency int, l logging.Logger) *Sender {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Sender{
		uploader:    u,
		directory:   d,
		transport:   t,
		sealer:      s,
		concurrency: concurrency,
		logger:      l.With("module", "sender"),
	}
}

// Send delivers msg to every recipient not yet delivered. It never uploads:
// a message that already carries an attachment reference is resent as is.
// The send succeeds when at least one pending recipient was reached; the
// outcome per recipient is recorded in Deliveries.
func (s *Sender) Send(ctx context.Context, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
	return async.Go(ctx, func(ctx context.Context) (models.OutgoingMessage, error) {
		return s.deliver(ctx, msg)
	})
}

// SendAttachmentData uploads data and then sends the message. If the upload
// fails nothing is delivered. A message that already carries a reference
// from an earlier call is sent without uploading again.
func (s *Sender) SendAttachmentData(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
	return async.Go(ctx, func(ctx context.Context) (models.OutgoingMessage, error) {
		return s.uploadThenDeliver(ctx, msg, func(ctx context.Context, m models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
			return s.uploader.Upload(ctx, data, contentType, m)
		})
	})
}

// SendTemporaryAttachmentData is SendAttachmentData for data that must not
// remain on disk after the upload.
func (s *Sender) SendTemporaryAttachmentData(ctx context.Context, data []byte, contentType string, msg models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
	return async.Go(ctx, func(ctx context.Context) (models.OutgoingMessage, error) {
		return s.uploadThenDeliver(ctx, msg, func(ctx context.Context, m models.OutgoingMessage) *async.Future[models.OutgoingMessage] {
			return s.uploader.UploadTemporary(ctx, data, contentType, m)
		})
	})
}

func (s *Sender) uploadThenDeliver(ctx context.Context, msg models.OutgoingMessage, upload func(context.Context, models.OutgoingMessage) *async.Future[models.OutgoingMessage]) (models.OutgoingMessage, error) {
	if msg.HasAttachment() {
		return s.deliver(ctx, msg.WithState(models.StateUploaded))
	}

	log := s.logger.With("message_id", msg.ID)

	uploaded, err := upload(ctx, msg.WithState(models.StateUploading)).Await(ctx)
	if err != nil {
		log.Warn(ctx, "attachment upload failed", "error", err)
		return msg.WithState(models.StateFailed), &SendError{MessageID: msg.ID, Stage: StageUpload, Failures: map[string]error{"": err}}
	}

	return s.deliver(ctx, uploaded.WithState(models.StateUploaded))
}

func (s *Sender) deliver(ctx context.Context, msg models.OutgoingMessage) (models.OutgoingMessage, error) {
	log := s.logger.With("message_id", msg.ID)
	pending := msg.Pending()
	if len(pending) == 0 {
		return msg.WithState(models.StateSent), nil
	}

	payload, err := envelope.FromMessage(msg).Encode()
	if err != nil {
		return msg.WithState(models.StateFailed), &SendError{MessageID: msg.ID, Stage: StageDelivery, Failures: map[string]error{"": err}}
	}

	out := msg.WithState(models.StateSending)
	for _, r := range pending {
		out = out.WithDelivery(r, models.DeliveryPending)
	}

	var (
		mu       sync.Mutex
		failures = map[string]error{}
	)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, recipient := range pending {
		g.Go(func() error {
			if err := s.deliverOne(ctx, recipient, payload); err != nil {
				mu.Lock()
				failures[recipient] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range pending {
		if _, failed := failures[r]; failed {
			out = out.WithDelivery(r, models.DeliveryFailed)
		} else {
			out = out.WithDelivery(r, models.DeliveryDelivered)
		}
	}

	if len(failures) == len(pending) {
		log.Warn(ctx, "message delivery failed", "recipients", len(pending))
		return out.WithState(models.StateFailed), &SendError{MessageID: msg.ID, Stage: StageDelivery, Failures: failures}
	}

	for r, ferr := range failures {
		log.Warn(ctx, "delivery to recipient failed", "recipient", r, "error", ferr)
	}
	log.Info(ctx, "message sent", "delivered", len(pending)-len(failures), "failed", len(failures))
	return out.WithState(models.StateSent), nil
}

func (s *Sender) deliverOne(ctx context.Context, recipient string, payload []byte) error {
	if !s.directory.IsRegistered(recipient) {
		if _, err := s.directory.Lookup(ctx, recipient); err != nil {
			return err
		}
	}

	sealed, err := s.sealer.Seal(ctx, recipient, payload)
	if err != nil {
		return err
	}
	return s.transport.DeliverEnvelope(ctx, recipient, sealed)
}

// DeliveryFailures returns the per-recipient failures of err, if it is a
// delivery-stage SendError.
func DeliveryFailures(err error) map[string]error {
	var se *SendError
	if errors.As(err, &se) && se.Stage == StageDelivery {
		return se.Failures
	}
	return nil
}
