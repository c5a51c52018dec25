package mail

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	imap "github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	msgmail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

const (
	// DefaultIMAPAddr is the Exchange IMAP gateway (implicit TLS).
	DefaultIMAPAddr = "ebox.su.se:993"
	// DefaultSMTPHost and DefaultSMTPPort are the submission endpoint
	// (STARTTLS).
	DefaultSMTPHost = "ebox.su.se"
	DefaultSMTPPort = 587

	// DefaultListLimit caps folder listings when the caller gives no
	// limit.
	DefaultListLimit = 50

	sentFolder      = "Sent Items"
	deletedFolder   = "Deleted Items"
	loginDomain     = "winadsu"
	messageIDDomain = "dsv.su.se"
	senderDomain    = "dsv.su.se"
)

// Client talks IMAP and SMTP to the university mail gateway. It holds
// one IMAP connection for its lifetime; SMTP connections are opened per
// send. Not safe for concurrent use.
type Client struct {
	creds    auth.Credentials
	imapAddr string
	smtpHost string
	smtpPort int
	log      *logrus.Entry

	conn *imapclient.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithIMAPAddr overrides the IMAP gateway address.
func WithIMAPAddr(addr string) Option {
	return func(c *Client) { c.imapAddr = addr }
}

// WithSMTP overrides the SMTP submission endpoint.
func WithSMTP(host string, port int) Option {
	return func(c *Client) {
		c.smtpHost = host
		c.smtpPort = port
	}
}

// WithLogger attaches a logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// Dial connects to the IMAP gateway and authenticates. The caller owns
// the returned client and must Close it.
func Dial(creds auth.Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		creds:    creds,
		imapAddr: DefaultIMAPAddr,
		smtpHost: DefaultSMTPHost,
		smtpPort: DefaultSMTPPort,
		log:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := connect(c.imapAddr, creds)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.log.WithField("addr", c.imapAddr).Debug("mail: imap session established")
	return c, nil
}

func connect(addr string, creds auth.Credentials) (*imapclient.Client, error) {
	conn, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, &auth.NetworkError{Hop: "imap dial", Err: err}
	}
	if err := conn.Login(loginUsername(creds.Username), creds.Password); err != nil {
		_ = conn.Logout()
		return nil, &auth.InvalidCredentialsError{Reason: fmt.Sprintf("imap login: %v", err)}
	}
	return conn, nil
}

// redial replaces the IMAP connection after the server dropped it.
func (c *Client) redial() error {
	conn, err := connect(c.imapAddr, c.creds)
	if err != nil {
		return err
	}
	old := c.conn
	c.conn = conn
	if old != nil {
		_ = old.Logout()
	}
	c.log.WithField("addr", c.imapAddr).Debug("mail: imap session re-established")
	return nil
}

// Close logs out of the IMAP session.
func (c *Client) Close() error {
	return c.conn.Logout()
}

// loginUsername prefixes the Windows domain the gateway expects.
func loginUsername(username string) string {
	return loginDomain + `\` + username
}

// Folder returns one folder with its message counts. The name may be an
// alias such as "sentitems" or a literal IMAP mailbox name.
func (c *Client) Folder(name string) (*Folder, error) {
	mbox, err := c.conn.Select(ResolveFolder(name), true)
	if err != nil {
		return nil, fmt.Errorf("select folder %q: %w", name, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	unseen, err := c.conn.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("count unread in %q: %w", name, err)
	}

	return &Folder{
		ID:     digestID(mbox.Name),
		Name:   mbox.Name,
		Total:  mbox.Messages,
		Unread: uint32(len(unseen)),
	}, nil
}

// Messages lists the newest messages in a folder, most recent first.
// Only envelope fields are fetched; use Message to load a body.
func (c *Client) Messages(folder string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	mbox, err := c.conn.Select(ResolveFolder(folder), true)
	if err != nil {
		return nil, fmt.Errorf("select folder %q: %w", folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	fetched := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags}, fetched)
	}()

	var out []Message
	for msg := range fetched {
		out = append(out, envelopeMessage(folder, msg))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch envelopes in %q: %w", folder, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SeqNum > out[j].SeqNum })
	return out, nil
}

// Message fetches one full message by its sequence number, extracting
// the body in the preferred rendering when available. The message is
// not marked read.
func (c *Client) Message(folder string, seqNum uint32, prefer BodyType) (*Message, error) {
	if _, err := c.conn.Select(ResolveFolder(folder), true); err != nil {
		return nil, fmt.Errorf("select folder %q: %w", folder, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNum)
	section := &imap.BodySectionName{Peek: true}

	fetched := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.Fetch(seqset, []imap.FetchItem{section.FetchItem(), imap.FetchFlags}, fetched)
	}()

	msg := <-fetched
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch message %d in %q: %w", seqNum, folder, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d not found in %q", seqNum, folder)
	}
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d in %q has no body section", seqNum, folder)
	}

	parsed, err := parseFullMessage(folder, seqNum, body, prefer)
	if err != nil {
		return nil, err
	}
	parsed.Read = hasFlag(msg.Flags, imap.SeenFlag)
	return parsed, nil
}

// Delete removes a message. By default it is moved to Deleted Items
// first; permanent skips the copy and expunges it outright.
func (c *Client) Delete(folder string, seqNum uint32, permanent bool) error {
	mailbox := ResolveFolder(folder)
	if _, err := c.conn.Select(mailbox, false); err != nil {
		return fmt.Errorf("select folder %q: %w", folder, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNum)

	if !permanent && mailbox != deletedFolder {
		if err := c.conn.Copy(seqset, deletedFolder); err != nil {
			return fmt.Errorf("copy message %d to %s: %w", seqNum, deletedFolder, err)
		}
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.conn.Store(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flag message %d deleted: %w", seqNum, err)
	}
	if err := c.conn.Expunge(nil); err != nil {
		return fmt.Errorf("expunge %q: %w", folder, err)
	}
	return nil
}

// Send submits a message over SMTP and appends a copy to Sent Items.
// A failure to save the copy is logged but does not fail the send.
func (c *Client) Send(out Outgoing) error {
	if len(out.To) == 0 {
		return fmt.Errorf("send: no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.creds.Username+"@"+senderDomain)
	m.SetHeader("To", out.To...)
	if len(out.Cc) > 0 {
		m.SetHeader("Cc", out.Cc...)
	}
	m.SetHeader("Subject", out.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), messageIDDomain))

	if out.HTMLBody != "" {
		plain := out.Body
		if plain == "" {
			plain = htmlToText(out.HTMLBody)
		}
		m.SetBody("text/plain", plain)
		m.AddAlternative("text/html", out.HTMLBody)
	} else {
		m.SetBody("text/plain", out.Body)
	}

	dialer := gomail.NewDialer(c.smtpHost, c.smtpPort, loginUsername(c.creds.Username), c.creds.Password)
	if err := dialer.DialAndSend(m); err != nil {
		return &auth.NetworkError{Hop: "smtp send", Err: err}
	}
	c.log.WithField("to", out.To).Info("mail: message sent")

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		c.log.WithError(err).Warn("mail: could not render sent copy")
		return nil
	}
	if err := c.conn.Append(sentFolder, []string{imap.SeenFlag}, time.Now(), &buf); err != nil {
		c.log.WithError(err).Warn("mail: could not save copy to sent items")
	}
	return nil
}

func envelopeMessage(folder string, msg *imap.Message) Message {
	out := Message{
		SeqNum:     msg.SeqNum,
		Read:       hasFlag(msg.Flags, imap.SeenFlag),
		Importance: ImportanceNormal,
	}
	env := msg.Envelope
	if env == nil {
		out.ID = messageID("", folder, msg.SeqNum)
		return out
	}
	out.ID = messageID(env.MessageId, folder, msg.SeqNum)
	out.Subject = env.Subject
	out.Date = env.Date
	if len(env.From) > 0 {
		out.From = imapAddress(env.From[0])
	}
	out.To = imapAddresses(env.To)
	out.Cc = imapAddresses(env.Cc)
	return out
}

func parseFullMessage(folder string, seqNum uint32, body io.Reader, prefer BodyType) (*Message, error) {
	mr, err := msgmail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse message %d in %q: %w", seqNum, folder, err)
	}

	header := mr.Header
	out := &Message{
		ID:         messageID(header.Get("Message-Id"), folder, seqNum),
		SeqNum:     seqNum,
		Importance: importanceFromHeaders(header.Get("Importance"), header.Get("X-Priority")),
	}
	out.Subject, _ = header.Subject()
	out.Date, _ = header.Date()
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = Address{Email: from[0].Address, Name: from[0].Name}
	}
	if to, err := header.AddressList("To"); err == nil {
		out.To = netAddresses(to)
	}
	if cc, err := header.AddressList("Cc"); err == nil {
		out.Cc = netAddresses(cc)
	}

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read message %d part: %w", seqNum, err)
		}
		switch h := part.Header.(type) {
		case *msgmail.InlineHeader:
			ct, _, _ := h.ContentType()
			raw, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("read message %d body: %w", seqNum, err)
			}
			switch ct {
			case "text/plain":
				if textBody == "" {
					textBody = string(raw)
				}
			case "text/html":
				if htmlBody == "" {
					htmlBody = string(raw)
				}
			}
		case *msgmail.AttachmentHeader:
			out.HasAttachments = true
		}
	}

	switch {
	case prefer == BodyHTML && htmlBody != "":
		out.Body, out.BodyType = htmlBody, BodyHTML
	case textBody != "":
		out.Body, out.BodyType = textBody, BodyText
	case htmlBody != "":
		out.Body, out.BodyType = htmlBody, BodyHTML
	}
	return out, nil
}

func imapAddress(a *imap.Address) Address {
	return Address{Email: a.Address(), Name: a.PersonalName}
}

func imapAddresses(addrs []*imap.Address) []Address {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, imapAddress(a))
	}
	return out
}

func netAddresses(addrs []*msgmail.Address) []Address {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, Address{Email: a.Address, Name: a.Name})
	}
	return out
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
