package mailbox

import (
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
)

// utf8Meta is prepended to HTML payloads so the renderer decodes the
// body as UTF-8 regardless of what the message headers claimed.
const utf8Meta = `<meta http-equiv="Content-type" content="text/html; charset=utf-8"/>`

// Message is the read-only view of one fetched mail message. It lives
// for a single processing iteration; mutations (flagging, moving) go
// through the Session using the UID.
type Message struct {
	UID         imap.UID
	Subject     string
	From        string
	Date        time.Time
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Attachment holds metadata about a message attachment. The content is
// never downloaded; its presence alone disqualifies a message.
type Attachment struct {
	Filename string
	Size     int64
	MIMEType string
}

// HasAttachments reports whether the message carries any attachment.
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// Payload returns the content handed to the renderer: the HTML body
// with a UTF-8 meta tag prepended when the HTML is non-blank, the
// plain-text body otherwise.
func (m *Message) Payload() string {
	if strings.TrimSpace(m.HTMLBody) != "" {
		return utf8Meta + m.HTMLBody
	}
	return m.TextBody
}
