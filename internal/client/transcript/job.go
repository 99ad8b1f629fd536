// Package transcript replays messages that another device of the same
// account has already sent.
package transcript

import (
	"context"

	"github.com/dmitrijs2005/courier/internal/async"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/logging"
)

// Retriever turns an attachment pointer into a local stream.
type Retriever interface {
	Retrieve(ctx context.Context, pointer models.Attachment, messageID string) (models.Attachment, error)
}

// PointerIDFunc names the local attachment of a message. It must be stable
// for the same arguments so that a replayed transcript reuses its records.
type PointerIDFunc func(messageID string, remoteID uint64) string

type Job struct {
	transcript models.Transcript
	retriever  Retriever
	newID      PointerIDFunc
	logger     logging.Logger
}

func NewJob(t models.Transcript, r Retriever, newID PointerIDFunc, l logging.Logger) *Job {
	return &Job{transcript: t, retriever: r, newID: newID, logger: l.With("module", "transcript", "message_id", t.MessageID)}
}

// Run reconciles the transcript into a sent message. If it references an
// attachment, the attachment is fetched and handler receives the stream. A
// failed fetch is only logged: the message is still returned, without the
// attachment, and no error.
func (j *Job) Run(ctx context.Context, handler func(models.Attachment)) *async.Future[models.OutgoingMessage] {
	return async.Go(ctx, func(ctx context.Context) (models.OutgoingMessage, error) {
		msg := j.transcript.Message()
		if j.transcript.Attachment == nil {
			return msg, nil
		}

		ref := *j.transcript.Attachment
		pointer := models.NewPointer(j.newID(j.transcript.MessageID, ref.RemoteID), ref)
		stream, err := j.retriever.Retrieve(ctx, pointer, j.transcript.MessageID)
		if err != nil {
			j.logger.Warn(ctx, "transcript attachment unavailable", "remote_id", pointer.RemoteID, "error", err)
			return msg, nil
		}

		if handler != nil {
			handler(stream)
		}
		return msg.WithAttachment(stream), nil
	})
}
