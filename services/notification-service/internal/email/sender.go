package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, to []string, cc []string, subject string, html string) error
	ProviderID() string
}

// SMTPSender sends email via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host string, port string, from string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "MIMB Immigration <support@mimbimmigration.com>"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPSender) ProviderID() string {
	return "smtp"
}

func (s *SMTPSender) Send(_ context.Context, to []string, cc []string, subject string, html string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	msg := buildMessage(s.from, to, cc, subject, html)
	rcpts := append(append([]string{}, to...), cc...)
	return smtp.SendMail(s.addr, nil, envelopeAddress(s.from), rcpts, []byte(msg))
}

func buildMessage(from string, to []string, cc []string, subject, html string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	if len(cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")
	return b.String()
}

// envelopeAddress strips a display name ("Name <addr>") down to the bare
// address for the SMTP envelope.
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}

// APISender posts to a Resend-compatible HTTP email API.
type APISender struct {
	url   string
	token string
	from  string
	http  *http.Client
}

func NewAPISender(url string, token string, from string) *APISender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "MIMB Immigration <support@mimbimmigration.com>"
	}
	return &APISender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		from:  from,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *APISender) ProviderID() string {
	return "email-api"
}

func (s *APISender) Send(ctx context.Context, to []string, cc []string, subject string, html string) error {
	if s.url == "" {
		return errors.New("email api url not configured")
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	payload := map[string]any{
		"from":    s.from,
		"to":      to,
		"subject": subject,
		"html":    html,
	}
	if len(cc) > 0 {
		payload["cc"] = cc
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email api returned status %d", resp.StatusCode)
	}
	return nil
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "email-noop"
}

func (s *NoopSender) Send(_ context.Context, _ []string, _ []string, _ string, _ string) error {
	return nil
}
