package mail

import (
	"strings"
	"testing"
	"time"

	imap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFolder(t *testing.T) {
	assert.Equal(t, "INBOX", ResolveFolder("inbox"))
	assert.Equal(t, "Sent Items", ResolveFolder("sentitems"))
	assert.Equal(t, "Deleted Items", ResolveFolder("deleteditems"))
	assert.Equal(t, "Junk Email", ResolveFolder("junkemail"))

	// Unknown names address custom folders directly.
	assert.Equal(t, "Kursarkiv", ResolveFolder("Kursarkiv"))
}

func TestLoginUsername(t *testing.T) {
	assert.Equal(t, `winadsu\abcd1234`, loginUsername("abcd1234"))
}

func TestImportanceFromHeaders(t *testing.T) {
	tests := []struct {
		name       string
		importance string
		xPriority  string
		want       Importance
	}{
		{"explicit high", "High", "", ImportanceHigh},
		{"explicit low", "low", "", ImportanceLow},
		{"x-priority urgent", "", "1 (Highest)", ImportanceHigh},
		{"x-priority two", "", "2", ImportanceHigh},
		{"x-priority low", "", "5 (Lowest)", ImportanceLow},
		{"default", "", "", ImportanceNormal},
		{"x-priority normal", "", "3", ImportanceNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importanceFromHeaders(tt.importance, tt.xPriority))
		})
	}
}

func TestMessageID(t *testing.T) {
	a := messageID("<abc@dsv.su.se>", "INBOX", 1)
	b := messageID("<abc@dsv.su.se>", "Drafts", 99)
	assert.Equal(t, a, b, "id should follow the header, not the folder position")
	assert.Len(t, a, 32)

	// Without a Message-Id header the folder position is all there is.
	assert.NotEqual(t, messageID("", "INBOX", 1), messageID("", "INBOX", 2))
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><style>p { color: red }</style></head><body>` +
		`<p>Hej!</p><p>Vi ses p&aring; <b>plan 3</b> imorgon.<br>Ta med dator.</p>` +
		`<script>alert(1)</script></body></html>`

	got := htmlToText(html)
	assert.Equal(t, "Hej!\n\nVi ses på plan 3 imorgon.\nTa med dator.", got)
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color")
}

const fullMessageFixture = `From: Anna Andersson <anna@dsv.su.se>
To: Berit Berg <berit@dsv.su.se>
Cc: carl@dsv.su.se
Subject: Handledning imorgon
Date: Mon, 02 Mar 2026 10:15:00 +0100
Message-Id: <abc123@dsv.su.se>
X-Priority: 1
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Hej! Vi ses klockan tio.
--b1
Content-Type: text/html; charset=utf-8

<p>Hej! Vi ses klockan tio.</p>
--b1--
`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParseFullMessagePrefersRequestedBody(t *testing.T) {
	msg, err := parseFullMessage("INBOX", 7, strings.NewReader(crlf(fullMessageFixture)), BodyHTML)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), msg.SeqNum)
	assert.Equal(t, "Handledning imorgon", msg.Subject)
	assert.Equal(t, Address{Email: "anna@dsv.su.se", Name: "Anna Andersson"}, msg.From)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "berit@dsv.su.se", msg.To[0].Email)
	require.Len(t, msg.Cc, 1)
	assert.Equal(t, "carl@dsv.su.se", msg.Cc[0].Email)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 15, 0, 0, time.FixedZone("", 3600)).Unix(), msg.Date.Unix())
	assert.Equal(t, ImportanceHigh, msg.Importance)
	assert.False(t, msg.HasAttachments)

	assert.Equal(t, BodyHTML, msg.BodyType)
	assert.Contains(t, msg.Body, "<p>Hej!")

	plain, err := parseFullMessage("INBOX", 7, strings.NewReader(crlf(fullMessageFixture)), BodyText)
	require.NoError(t, err)
	assert.Equal(t, BodyText, plain.BodyType)
	assert.Equal(t, "Hej! Vi ses klockan tio.", strings.TrimSpace(plain.Body))
}

const attachmentMessageFixture = `From: anna@dsv.su.se
To: berit@dsv.su.se
Subject: Tentaresultat
Message-Id: <def456@dsv.su.se>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b2"

--b2
Content-Type: text/plain; charset=utf-8

Resultaten bifogas.
--b2
Content-Type: application/pdf
Content-Disposition: attachment; filename="resultat.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--b2--
`

func TestParseFullMessageDetectsAttachments(t *testing.T) {
	msg, err := parseFullMessage("INBOX", 3, strings.NewReader(crlf(attachmentMessageFixture)), BodyText)
	require.NoError(t, err)

	assert.True(t, msg.HasAttachments)
	assert.Equal(t, BodyText, msg.BodyType)
	assert.Equal(t, "Resultaten bifogas.", strings.TrimSpace(msg.Body))
	assert.Equal(t, ImportanceNormal, msg.Importance)
}

func TestEnvelopeMessage(t *testing.T) {
	sent := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := &imap.Message{
		SeqNum: 41,
		Flags:  []string{imap.SeenFlag},
		Envelope: &imap.Envelope{
			Date:      sent,
			Subject:   "Schemaändring",
			MessageId: "<ghi789@dsv.su.se>",
			From: []*imap.Address{{
				PersonalName: "Studentexpeditionen",
				MailboxName:  "exp",
				HostName:     "dsv.su.se",
			}},
			To: []*imap.Address{{MailboxName: "berit", HostName: "dsv.su.se"}},
		},
	}

	got := envelopeMessage("INBOX", msg)
	assert.Equal(t, uint32(41), got.SeqNum)
	assert.Equal(t, "Schemaändring", got.Subject)
	assert.Equal(t, "exp@dsv.su.se", got.From.Email)
	assert.Equal(t, "Studentexpeditionen", got.From.Name)
	assert.True(t, got.Read)
	assert.Equal(t, sent, got.Date)
	assert.Equal(t, messageID("<ghi789@dsv.su.se>", "INBOX", 41), got.ID)
}

func TestEnvelopeMessageMissingEnvelope(t *testing.T) {
	got := envelopeMessage("INBOX", &imap.Message{SeqNum: 5})
	assert.False(t, got.Read)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, ImportanceNormal, got.Importance)
}
