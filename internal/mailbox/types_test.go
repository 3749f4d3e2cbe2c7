package mailbox

import (
	"strings"
	"testing"
)

func TestPayloadPrefersHTML(t *testing.T) {
	msg := Message{
		HTMLBody: "<p>hello</p>",
		TextBody: "hello",
	}

	payload := msg.Payload()
	if !strings.HasPrefix(payload, utf8Meta) {
		t.Fatalf("payload missing UTF-8 meta tag: %q", payload)
	}
	if !strings.HasSuffix(payload, "<p>hello</p>") {
		t.Fatalf("payload missing HTML body: %q", payload)
	}
}

func TestPayloadFallsBackToText(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Message{HTMLBody: tt.html, TextBody: "plain body"}
			if got := msg.Payload(); got != "plain body" {
				t.Fatalf("Payload() = %q, want plain text body", got)
			}
		})
	}
}

func TestHasAttachments(t *testing.T) {
	msg := Message{}
	if msg.HasAttachments() {
		t.Fatal("empty message reports attachments")
	}

	msg.Attachments = []Attachment{{Filename: "a.pdf"}}
	if !msg.HasAttachments() {
		t.Fatal("message with attachment reports none")
	}
}

func TestParseMIMEBody(t *testing.T) {
	raw := strings.ReplaceAll(`From: sender@example.org
To: inbox@example.org
Subject: invoice
Content-Type: multipart/alternative; boundary="ALT"

--ALT
Content-Type: text/plain; charset=utf-8

hello plain
--ALT
Content-Type: text/html; charset=utf-8

<p>hello html</p>
--ALT--
`, "\n", "\r\n")

	text, html, attachments := parseMIMEBody([]byte(raw))
	if !strings.Contains(text, "hello plain") {
		t.Fatalf("text body = %q", text)
	}
	if !strings.Contains(html, "<p>hello html</p>") {
		t.Fatalf("html body = %q", html)
	}
	if len(attachments) != 0 {
		t.Fatalf("unexpected attachments: %+v", attachments)
	}
}

func TestParseMIMEBodyWithAttachment(t *testing.T) {
	raw := strings.ReplaceAll(`From: sender@example.org
To: inbox@example.org
Subject: report
Content-Type: multipart/mixed; boundary="MIX"

--MIX
Content-Type: text/plain; charset=utf-8

see attached
--MIX
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

aGVsbG8=
--MIX--
`, "\n", "\r\n")

	text, _, attachments := parseMIMEBody([]byte(raw))
	if !strings.Contains(text, "see attached") {
		t.Fatalf("text body = %q", text)
	}
	if len(attachments) != 1 {
		t.Fatalf("attachments = %+v", attachments)
	}
	if attachments[0].Filename != "report.pdf" {
		t.Fatalf("attachment filename = %q", attachments[0].Filename)
	}
	if attachments[0].Size != 5 {
		t.Fatalf("attachment size = %d, want 5", attachments[0].Size)
	}
}

func TestParseMIMEBodyUnparsable(t *testing.T) {
	text, html, attachments := parseMIMEBody([]byte("just some bytes"))
	if text != "just some bytes" || html != "" || attachments != nil {
		t.Fatalf("unparsable input not treated as plain text: %q %q %+v", text, html, attachments)
	}
}
