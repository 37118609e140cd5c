package mail

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/dywsy21/Cecilia/internal/config"
)

// Message is a single email to send.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Attachment is a binary file carried with a digest email.
type Attachment struct {
	Filename string
	Data     []byte
}

// Sender sends emails over SMTP.
type Sender struct {
	cfg config.MailConfig
}

// New wraps the mail configuration as a Sender.
func New(cfg config.MailConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Enabled reports whether the email channel is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.Enable && s.cfg.Host != "" && s.cfg.User != ""
}

// Send dispatches an email. Disabled configuration is a silent no-op so
// that push-only deployments need no mail settings.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.cfg.Host == "" || s.cfg.User == "" {
		return fmt.Errorf("mail: smtp configuration incomplete")
	}

	body := s.buildMIME(msg)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)

	if s.cfg.SSL {
		return s.sendTLS(addr, auth, msg.To, body)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, msg.To, body)
}

// sendTLS speaks SMTP over an implicit TLS connection (SMTPS, port 465).
func (s *Sender) sendTLS(addr string, auth smtp.Auth, to []string, body []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("mail: tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

const mixedBoundary = "cecilia-mixed-boundary"

// buildMIME renders the RFC 2045 message body. Attachments switch the
// message to multipart/mixed; plain HTML mail stays single-part.
func (s *Sender) buildMIME(msg Message) []byte {
	var buf bytes.Buffer

	from := s.cfg.From
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.SenderName), s.cfg.From)
	}

	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))

	if len(msg.Attachments) == 0 {
		buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.HTML)
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary))

	buf.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.WriteString(msg.HTML)
	buf.WriteString("\r\n")

	for _, att := range msg.Attachments {
		buf.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		buf.WriteString("Content-Type: application/pdf\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", att.Filename))
		writeBase64Wrapped(&buf, att.Data)
		buf.WriteString("\r\n")
	}
	buf.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))
	return buf.Bytes()
}

// writeBase64Wrapped emits base64 in 76-column lines per RFC 2045.
func writeBase64Wrapped(buf *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	if encoded != "" {
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}
}
