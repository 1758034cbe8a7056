// ABOUTME: RFC 5322 message construction and message summaries
// ABOUTME: Guards headers against injection and extracts readable bodies

package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"regexp"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// Draft is an outgoing message.
type Draft struct {
	To      string
	Cc      string
	Bcc     string
	Subject string
	Body    string
}

// Validate checks required fields and address syntax.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.To) == "" {
		return fmt.Errorf("recipient address (to) cannot be empty")
	}
	if strings.TrimSpace(d.Subject) == "" {
		return fmt.Errorf("subject cannot be empty")
	}
	for field, value := range map[string]string{"to": d.To, "cc": d.Cc, "bcc": d.Bcc} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := mail.ParseAddressList(sanitizeHeader(value)); err != nil {
			return fmt.Errorf("invalid %s address list %q: %w", field, value, err)
		}
	}
	return nil
}

// Recipients returns every address the draft is sent to.
func (d Draft) Recipients() []string {
	var out []string
	for _, list := range []string{d.To, d.Cc, d.Bcc} {
		if strings.TrimSpace(list) == "" {
			continue
		}
		addrs, err := mail.ParseAddressList(sanitizeHeader(list))
		if err != nil {
			continue
		}
		for _, a := range addrs {
			out = append(out, a.Address)
		}
	}
	return out
}

var htmlTagPattern = regexp.MustCompile(`(?i)<(?:!doctype\s+html|/?(?:html|head|body|div|p|br|span|a|img|table|tr|td|th|h[1-6]|ul|ol|li|strong|em|b|i|blockquote)\b)`)

// isHTML reports whether body looks like HTML markup.
func isHTML(body string) bool {
	return htmlTagPattern.MatchString(body)
}

// sanitizeHeader strips CR and LF so a value cannot start a new header.
func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(value)
}

// encodeHeader applies RFC 2047 encoding to non-ASCII header values.
func encodeHeader(value string) string {
	return mime.QEncoding.Encode("UTF-8", sanitizeHeader(value))
}

func buildMessage(d Draft) string {
	contentType := `text/plain; charset="UTF-8"`
	if isHTML(d.Body) {
		contentType = `text/html; charset="UTF-8"`
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeHeader(d.To))
	if d.Cc != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", sanitizeHeader(d.Cc))
	}
	if d.Bcc != "" {
		fmt.Fprintf(&b, "Bcc: %s\r\n", sanitizeHeader(d.Bcc))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(d.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(d.Body)
	return b.String()
}

// Summary is the agent-facing view of a message.
type Summary struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"thread_id,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Cc       string   `json:"cc,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Date     string   `json:"date,omitempty"`
	Snippet  string   `json:"snippet,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Body     string   `json:"body,omitempty"`
}

// Summarize extracts headers and, when present, the readable body.
func Summarize(msg *gmail.Message) Summary {
	s := Summary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
	}
	if msg.Payload == nil {
		return s
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			s.From = h.Value
		case "to":
			s.To = h.Value
		case "cc":
			s.Cc = h.Value
		case "subject":
			s.Subject = h.Value
		case "date":
			s.Date = h.Value
		}
	}

	s.Body = extractBody(msg.Payload)
	return s
}

// extractBody prefers text/plain, falling back to text/html.
func extractBody(part *gmail.MessagePart) string {
	if text := findPart(part, "text/plain"); text != "" {
		return text
	}
	return findPart(part, "text/html")
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, child := range part.Parts {
		if text := findPart(child, mimeType); text != "" {
			return text
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
