package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/observability"
)

const (
	// defaultIdleTimeout stays under the 30 minute cutoff RFC 2177 allows
	// servers to drop idle connections at.
	defaultIdleTimeout = 29 * time.Minute
	// defaultPollInterval drives the NOOP fallback when the server does
	// not advertise IDLE.
	defaultPollInterval = time.Minute

	reconnectMaxBackoff = 32 * time.Second
)

// Handler receives each newly arrived message.
type Handler func(Message)

// ErrorHandler receives recoverable monitoring errors. The bot keeps
// running after calling it.
type ErrorHandler func(error)

// messageFetcher is the slice of Client the bot needs to load bodies.
type messageFetcher interface {
	Message(folder string, seqNum uint32, prefer BodyType) (*Message, error)
}

// Bot watches a folder over IMAP IDLE and hands every new message to a
// handler. When the server lacks IDLE support the underlying client falls
// back to polling; when the connection drops the bot reconnects with
// exponential backoff. The bot owns the Client's IMAP connection while
// running.
type Bot struct {
	client *Client
	source messageFetcher

	folder      string
	prefer      BodyType
	poll        time.Duration
	idleTimeout time.Duration
	onMessage   Handler
	onError     ErrorHandler
	log         *logrus.Entry

	lastSeen uint32
}

// BotOption adjusts a Bot.
type BotOption func(*Bot)

// WithBotFolder selects the folder to watch. Defaults to the inbox.
func WithBotFolder(name string) BotOption {
	return func(b *Bot) { b.folder = name }
}

// WithBotBodyType selects the body rendering passed to the handler.
func WithBotBodyType(prefer BodyType) BotOption {
	return func(b *Bot) { b.prefer = prefer }
}

// WithPollInterval sets the polling interval used when IDLE is not
// supported.
func WithPollInterval(d time.Duration) BotOption {
	return func(b *Bot) { b.poll = d }
}

// WithErrorHandler registers a callback for recoverable errors.
func WithErrorHandler(fn ErrorHandler) BotOption {
	return func(b *Bot) { b.onError = fn }
}

// WithBotLogger attaches a logger.
func WithBotLogger(log *logrus.Entry) BotOption {
	return func(b *Bot) { b.log = log }
}

// NewBot creates a bot delivering new messages from the client's mailbox
// to onMessage. Call Run to start watching.
func NewBot(client *Client, onMessage Handler, opts ...BotOption) *Bot {
	b := &Bot{
		client:      client,
		source:      client,
		folder:      "inbox",
		prefer:      BodyText,
		poll:        defaultPollInterval,
		idleTimeout: defaultIdleTimeout,
		onMessage:   onMessage,
		log:         observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run watches the folder until ctx is cancelled. Connection errors are
// reported through the error handler and answered with a reconnect;
// Run returns only on cancellation or when reconnecting fails.
func (b *Bot) Run(ctx context.Context) error {
	mailbox := ResolveFolder(b.folder)
	mbox, err := b.client.conn.Select(mailbox, true)
	if err != nil {
		return fmt.Errorf("select folder %q: %w", b.folder, err)
	}
	b.lastSeen = mbox.Messages
	b.log.WithFields(logrus.Fields{"folder": mailbox, "messages": b.lastSeen}).Info("mail bot: watching")

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = reconnectMaxBackoff
	bo.MaxElapsedTime = 0

	for {
		count, err := b.watch(ctx)
		switch {
		case err == nil:
			b.dispatch(count)
			bo.Reset()

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err

		default:
			b.reportError(fmt.Errorf("mail bot: watch %q: %w", b.folder, err))
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := b.reconnect(mailbox); err != nil {
				b.reportError(fmt.Errorf("mail bot: reconnect: %w", err))
				return err
			}
			bo.Reset()
		}
	}
}

// watch runs one IDLE round: it blocks until the mailbox changes, an
// error occurs or ctx is cancelled, and returns the new message count.
// The connection must leave IDLE before it can fetch, so delivery is the
// caller's job.
func (b *Bot) watch(ctx context.Context) (uint32, error) {
	updates := make(chan imapclient.Update, 8)
	b.client.conn.Updates = updates
	defer func() { b.client.conn.Updates = nil }()

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.client.conn.Idle(stop, &imapclient.IdleOptions{
			LogoutTimeout: b.idleTimeout,
			PollInterval:  b.poll,
		})
	}()

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return 0, ctx.Err()

		case update := <-updates:
			mb, ok := update.(*imapclient.MailboxUpdate)
			if !ok {
				continue
			}
			close(stop)
			<-done
			return mb.Mailbox.Messages, nil

		case err := <-done:
			if err == nil {
				err = errors.New("idle ended unexpectedly")
			}
			return 0, err
		}
	}
}

// dispatch fetches and delivers every message above the last seen
// sequence number. A shrinking count means an expunge renumbered the
// mailbox; the watermark is lowered without delivering anything.
func (b *Bot) dispatch(count uint32) {
	if count < b.lastSeen {
		b.lastSeen = count
		return
	}
	for seq := b.lastSeen + 1; seq <= count; seq++ {
		msg, err := b.source.Message(b.folder, seq, b.prefer)
		if err != nil {
			b.reportError(fmt.Errorf("mail bot: fetch message %d in %q: %w", seq, b.folder, err))
			continue
		}
		b.onMessage(*msg)
	}
	b.lastSeen = count
}

// reconnect redials the gateway, re-selects the folder and delivers any
// mail that arrived while disconnected.
func (b *Bot) reconnect(mailbox string) error {
	if err := b.client.redial(); err != nil {
		return err
	}
	mbox, err := b.client.conn.Select(mailbox, true)
	if err != nil {
		return fmt.Errorf("select folder %q: %w", b.folder, err)
	}
	b.dispatch(mbox.Messages)
	return nil
}

func (b *Bot) reportError(err error) {
	b.log.WithError(err).Warn("mail bot: error")
	if b.onError != nil {
		b.onError(err)
	}
}
