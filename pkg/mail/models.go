package mail

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// BodyType tells which rendering of a message body was extracted.
type BodyType string

const (
	BodyText BodyType = "text"
	BodyHTML BodyType = "html"
)

// Importance mirrors the Exchange importance flag.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Address is a single mailbox with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Message is one mailbox entry. Listing folders populates the envelope
// fields only; fetching a single message fills in Body and Importance.
type Message struct {
	// ID is a stable digest of the Message-ID header, or of the
	// folder and sequence number when the header is absent.
	ID string `json:"id"`

	// SeqNum is the IMAP sequence number within the folder at the
	// time of listing. It is what fetch and delete operate on.
	SeqNum uint32 `json:"seq_num"`

	Subject  string   `json:"subject"`
	Body     string   `json:"body,omitempty"`
	BodyType BodyType `json:"body_type,omitempty"`

	From Address   `json:"from"`
	To   []Address `json:"to,omitempty"`
	Cc   []Address `json:"cc,omitempty"`

	Date time.Time `json:"date"`

	Read           bool       `json:"read"`
	HasAttachments bool       `json:"has_attachments"`
	Importance     Importance `json:"importance"`
}

// Folder is a mailbox folder with its message counts.
type Folder struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Total  uint32 `json:"total"`
	Unread uint32 `json:"unread"`
}

// Outgoing describes a message to send. HTMLBody is optional; when set
// the message goes out as multipart/alternative with a plain-text
// rendering derived from the HTML.
type Outgoing struct {
	To       []string
	Cc       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Well-known folder aliases accepted by the client, resolved to the
// names the Exchange IMAP gateway exposes.
var folderNames = map[string]string{
	"inbox":        "INBOX",
	"sentitems":    "Sent Items",
	"drafts":       "Drafts",
	"deleteditems": "Deleted Items",
	"junkemail":    "Junk Email",
	"outbox":       "Outbox",
}

// ResolveFolder maps a folder alias such as "sentitems" to the IMAP
// mailbox name. Unknown names pass through unchanged so callers can
// address custom folders directly.
func ResolveFolder(name string) string {
	if mapped, ok := folderNames[name]; ok {
		return mapped
	}
	return name
}

func digestID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func messageID(messageIDHeader, folder string, seqNum uint32) string {
	if messageIDHeader != "" {
		return digestID(messageIDHeader)
	}
	return digestID(fmt.Sprintf("%s:%d", folder, seqNum))
}

// importanceFromHeaders maps the Importance and X-Priority headers to
// the three-level flag. X-Priority 1 and 2 count as high, 4 and 5 as
// low.
func importanceFromHeaders(importance, xPriority string) Importance {
	switch importance {
	case "high", "High":
		return ImportanceHigh
	case "low", "Low":
		return ImportanceLow
	}
	if len(xPriority) > 0 {
		switch xPriority[0] {
		case '1', '2':
			return ImportanceHigh
		case '4', '5':
			return ImportanceLow
		}
	}
	return ImportanceNormal
}
