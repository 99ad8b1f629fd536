package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/courier/internal/client/app"
	"github.com/dmitrijs2005/courier/internal/client/attachments"
	"github.com/dmitrijs2005/courier/internal/client/models"
	"github.com/dmitrijs2005/courier/internal/client/transcript"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/envelope"
)

var errUsage = fmt.Errorf("usage: %w", common.ErrInvalidArgument)

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

// Register creates the relay account: register <identifier> [relay].
func (a *App) Register(ctx context.Context, args []string) error {
	var identifier, relay string
	switch len(args) {
	case 0:
		id, err := GetSimpleText(a.reader, "Enter identifier (phone number)", a.out)
		if err != nil {
			return err
		}
		identifier = id
	case 1:
		identifier = args[0]
	default:
		identifier, relay = args[0], args[1]
	}
	if identifier == "" {
		return usage("register <identifier> [relay]")
	}

	if err := a.account.Register(ctx, identifier, relay); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered as %s\n", identifier)
	return nil
}

// Send delivers a text message: send <r1,r2> [body...].
func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("send <recipients> [body]")
	}
	recipients := splitRecipients(args[0])
	if len(recipients) == 0 {
		return usage("send <recipients> [body]")
	}

	body := strings.Join(args[1:], " ")
	if body == "" {
		b, err := GetMultiline(a.reader, "Enter message", a.out)
		if err != nil {
			return err
		}
		body = b
	}

	msg := newMessage(recipients, body)
	out, err := a.sender.Send(ctx, msg).Await(ctx)
	return a.finish(msg, out, err)
}

// SendFile sends a file as an attachment: sendfile <r1,r2> <path> [--temp].
func (a *App) SendFile(ctx context.Context, args []string) error {
	temporary := slices.Contains(args, "--temp")
	args = slices.DeleteFunc(slices.Clone(args), func(s string) bool { return s == "--temp" })
	if len(args) < 2 {
		return usage("sendfile <recipients> <path> [--temp]")
	}
	recipients := splitRecipients(args[0])
	if len(recipients) == 0 {
		return usage("sendfile <recipients> <path> [--temp]")
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	contentType := detectContentType(args[1], data)

	msg := newMessage(recipients, strings.Join(args[2:], " "))
	send := a.sender.SendAttachmentData
	if temporary {
		send = a.sender.SendTemporaryAttachmentData
	}
	out, err := send(ctx, data, contentType, msg).Await(ctx)
	return a.finish(msg, out, err)
}

// Resend retries recipients that were not reached: resend <message-id>.
func (a *App) Resend(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("resend <message-id>")
	}
	msg, ok := a.recall(args[0])
	if !ok {
		return common.NewNotFoundError("message")
	}
	out, err := a.sender.Send(ctx, msg).Await(ctx)
	return a.finish(msg, out, err)
}

func newMessage(recipients []string, body string) models.OutgoingMessage {
	return models.OutgoingMessage{
		ID:         app.NewMessageID(),
		Recipients: recipients,
		Body:       body,
		Timestamp:  time.Now(),
		State:      models.StateUnsent,
	}
}

func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// finish records the outcome for resend and prints per-recipient status.
// An abandoned wait keeps the original message.
func (a *App) finish(orig, out models.OutgoingMessage, err error) error {
	if out.ID == "" {
		out = orig
	}
	a.remember(out)

	fmt.Fprintf(a.out, "message %s: %s\n", out.ID, out.State)
	if out.Attachment != nil {
		fmt.Fprintf(a.out, "  attachment %d (%s)\n", out.Attachment.RemoteID, out.Attachment.ContentType)
	}
	recipients := slices.Clone(out.Recipients)
	slices.Sort(recipients)
	for _, r := range recipients {
		fmt.Fprintf(a.out, "  %s: %s\n", r, out.Deliveries[r])
	}
	return err
}

// Lookup checks whether an identifier is registered: lookup <identifier>.
func (a *App) Lookup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("lookup <identifier>")
	}
	ids, err := a.directory.Lookup(ctx, args[0])
	if errors.Is(err, common.ErrNotFound) {
		fmt.Fprintf(a.out, "%s is not registered\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is registered: %s\n", args[0], strings.Join(ids, ", "))
	return nil
}

// Contacts imports a JSON contact list and refreshes discovery:
// contacts [file.json]. Without a file the stored contacts are re-checked.
func (a *App) Contacts(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usage("contacts [file.json]")
	}
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var imported []models.Contact
		if err := json.Unmarshal(raw, &imported); err != nil {
			return fmt.Errorf("contacts file: %w", common.ErrInvalidArgument)
		}
		for _, c := range imported {
			if c.ID == "" {
				continue
			}
			b, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := a.contacts.Set(ctx, c.ID, b); err != nil {
				return err
			}
		}
	}

	all, err := a.loadContacts(ctx)
	if err != nil {
		return err
	}
	if _, err := a.directory.Intersect(ctx, all).Await(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%d contacts, %d on courier\n", len(all), a.directory.Len())
	for _, c := range all {
		if m := a.directory.Matches(c.ID); len(m) > 0 {
			fmt.Fprintf(a.out, "  %s: %s\n", c.Name, strings.Join(m, ", "))
		}
	}
	return nil
}

func (a *App) loadContacts(ctx context.Context) ([]models.Contact, error) {
	raw, err := a.contacts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Contact, 0, len(raw))
	for key, b := range raw {
		var c models.Contact
		if err := json.Unmarshal(b, &c); err != nil {
			a.logger.Warn(ctx, "skipping unreadable contact", "key", key, "error", err)
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(x, y models.Contact) int { return strings.Compare(x.ID, y.ID) })
	return out, nil
}

// Attachments lists local attachment records and the folder size.
func (a *App) Attachments(ctx context.Context) error {
	list, skipped, err := a.attachments.List(ctx)
	if err != nil {
		return err
	}
	files, err := a.store.Count()
	if err != nil {
		return err
	}

	slices.SortFunc(list, func(x, y models.Attachment) int { return strings.Compare(x.ID, y.ID) })
	for _, att := range list {
		fmt.Fprintf(a.out, "%s %s %s remote=%d %s\n", att.ID, att.Kind, att.ContentType, att.RemoteID, describe(att))
	}
	fmt.Fprintf(a.out, "%d records (%d unreadable), %d files\n", len(list), skipped, files)
	return nil
}

func describe(att models.Attachment) string {
	switch {
	case att.Stream != nil && att.Stream.IsDownloaded:
		return att.Stream.LocalPath
	case att.Stream != nil:
		return "uploaded"
	case att.Pointer != nil && att.Pointer.Downloading:
		return "downloading"
	case att.Pointer != nil && att.Pointer.Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Purge deletes every local attachment file and record.
func (a *App) Purge(ctx context.Context) error {
	if err := a.store.DeleteAll(); err != nil {
		return err
	}
	if err := a.attachments.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Attachments purged")
	return nil
}

// Fetch retries the download of a pointer: fetch <attachment-id>.
func (a *App) Fetch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("fetch <attachment-id>")
	}
	pointer, err := a.attachments.Get(ctx, args[0])
	if err != nil {
		return err
	}
	stream, err := a.retriever.Retrieve(ctx, pointer, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "attachment saved to %s\n", stream.Stream.LocalPath)
	return nil
}

// Inbox fetches waiting envelopes. Envelopes sent by the local identifier
// come from another device of this account and are replayed as transcripts.
func (a *App) Inbox(ctx context.Context) error {
	envs, err := a.mailbox.FetchEnvelopes(ctx, inboxLimit)
	if err != nil {
		return err
	}
	own := a.account.Identifier(ctx)

	for _, env := range envs {
		plain, err := a.sealer.Open(ctx, env.Sender, env.Payload)
		if err != nil {
			a.logger.Warn(ctx, "cannot open envelope", "envelope_id", env.ID, "error", err)
			continue
		}
		content, err := envelope.Decode(plain)
		if err != nil {
			a.logger.Warn(ctx, "cannot decode envelope", "envelope_id", env.ID, "error", err)
			continue
		}

		if env.Sender == own {
			a.replay(ctx, content)
			continue
		}
		a.receive(ctx, env.Sender, content)
	}
	fmt.Fprintf(a.out, "%d envelopes\n", len(envs))
	return nil
}

func (a *App) replay(ctx context.Context, content envelope.Content) {
	t := models.Transcript{
		MessageID:  content.MessageID,
		Recipients: content.Recipients,
		Body:       content.Body,
		Timestamp:  content.Timestamp,
		Attachment: content.Attachment,
	}
	job := transcript.NewJob(t, a.retriever, attachments.PointerID, a.logger)
	msg, err := job.Run(ctx, func(att models.Attachment) {
		fmt.Fprintf(a.out, "  attachment saved to %s\n", att.Stream.LocalPath)
	}).Await(ctx)
	if err != nil {
		a.logger.Warn(ctx, "transcript replay abandoned", "message_id", content.MessageID, "error", err)
		return
	}
	a.remember(msg)
	fmt.Fprintf(a.out, "[sent from another device] %s\n", msg.Body)
}

func (a *App) receive(ctx context.Context, from string, content envelope.Content) {
	fmt.Fprintf(a.out, "[%s] %s\n", from, content.Body)
	if content.Attachment == nil {
		return
	}

	pointer := models.NewPointer(attachments.PointerID(content.MessageID, content.Attachment.RemoteID), *content.Attachment)
	stream, err := a.retriever.Retrieve(ctx, pointer, content.MessageID)
	if err != nil {
		fmt.Fprintf(a.out, "  attachment %s unavailable, retry with: fetch %s\n", pointer.ID, pointer.ID)
		return
	}
	fmt.Fprintf(a.out, "  attachment saved to %s\n", stream.Stream.LocalPath)
}
