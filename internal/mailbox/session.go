package mailbox

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// DialConfig carries everything needed to open one authenticated
// session.
type DialConfig struct {
	// Server is host or host:port; port 993 is assumed when absent.
	Server   string
	Username string
	Password string

	// Folder is selected after login.
	Folder string

	// Timeout bounds each individual server call, the dial included.
	// Zero means no deadline.
	Timeout time.Duration
}

// Session is an authenticated IMAP connection with a selected folder.
// It is owned by a single run and never used concurrently.
type Session struct {
	client  *imapclient.Client
	conn    net.Conn
	timeout time.Duration
}

// Dial connects over implicit TLS, authenticates, and selects the
// configured folder. The caller must Close the session on every exit
// path.
func Dial(cfg DialConfig) (*Session, error) {
	addr := cfg.Server
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else {
		addr = net.JoinHostPort(addr, "993")
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	s := &Session{
		client:  imapclient.New(conn, nil),
		conn:    conn,
		timeout: cfg.Timeout,
	}

	s.extendDeadline()
	if err := s.client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("authenticating %s: %w", cfg.Username, err)
	}

	s.extendDeadline()
	if _, err := s.client.Select(cfg.Folder, nil).Wait(); err != nil {
		_ = s.client.Logout().Wait()
		return nil, fmt.Errorf("selecting folder %q: %w", cfg.Folder, err)
	}

	return s, nil
}

// Close logs out and releases the connection. Safe to call after a
// failed operation.
func (s *Session) Close() error {
	s.extendDeadline()
	if err := s.client.Logout().Wait(); err != nil {
		_ = s.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// extendDeadline pushes the connection deadline forward before a
// server call, so no single operation can block past the configured
// timeout.
func (s *Session) extendDeadline() {
	if s.timeout <= 0 {
		return
	}
	_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
}

// Search returns the UIDs matching criteria, in mailbox order,
// truncated to limit when limit is positive.
func (s *Session) Search(criteria *imap.SearchCriteria, limit int) ([]imap.UID, error) {
	s.extendDeadline()
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := data.AllUIDs()
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}
	return uids, nil
}

// Fetch downloads the given messages with their bodies. BODY.PEEK is
// used throughout so fetching never sets \Seen as a side effect.
// Messages are returned in the order the server delivers them, which
// for a single UID set is mailbox order.
func (s *Session) Fetch(uids []imap.UID) ([]Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	s.extendDeadline()
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	var messages []Message
	for {
		s.extendDeadline()
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		m := Message{UID: buf.UID}
		if buf.Envelope != nil {
			m.Subject = buf.Envelope.Subject
			m.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				from := buf.Envelope.From[0]
				if from.Name != "" {
					m.From = from.Name
				} else {
					m.From = from.Addr()
				}
			}
		}

		if raw := buf.FindBodySection(bodySection); raw != nil {
			m.TextBody, m.HTMLBody, m.Attachments = parseMIMEBody(raw)
		}

		messages = append(messages, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// ApplyFlag sets or clears one flag on a message via a silent UID STORE.
func (s *Session) ApplyFlag(uid imap.UID, directive FlagDirective) error {
	op := imap.StoreFlagsAdd
	if !directive.Set {
		op = imap.StoreFlagsDel
	}

	s.extendDeadline()
	storeCmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  []imap.Flag{directive.Flag},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("storing flag %s: %w", directive.Flag, err)
	}
	return nil
}

// Move transfers a message to another folder.
func (s *Session) Move(uid imap.UID, folder string) error {
	s.extendDeadline()
	if _, err := s.client.Move(imap.UIDSetNum(uid), folder).Wait(); err != nil {
		return fmt.Errorf("moving message to %q: %w", folder, err)
	}
	return nil
}

// parseMIMEBody parses a raw RFC 5322 message using go-message and
// extracts the text/plain body, text/html body, and attachment
// metadata.
func parseMIMEBody(raw []byte) (textBody, htmlBody string, attachments []Attachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparsable structure: treat the whole payload as plain text.
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			size, readErr := io.Copy(io.Discard, part.Body)
			if readErr != nil {
				continue
			}

			attachments = append(attachments, Attachment{
				Filename: filename,
				Size:     size,
				MIMEType: contentType,
			})
		}
	}

	return textBody, htmlBody, attachments
}
