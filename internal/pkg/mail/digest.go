package mail

import (
	"fmt"
	"time"
)

// maxAttachmentBytes caps the combined PDF payload of a digest email.
// Most providers reject messages around 50MB, so further attachments
// are dropped once the running total would cross this limit.
const maxAttachmentBytes = 45 * 1024 * 1024

// SendVerificationCode delivers the subscription verification email.
func (s *Sender) SendVerificationCode(to, code string, topics []string, ttl time.Duration) error {
	html, err := RenderVerification(code, topics, ttl)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "Cecilia 订阅验证码",
		HTML:    html,
	})
}

// SendDigest delivers the daily paper digest for one topic, attaching
// PDFs while the combined size stays under the attachment cap.
func (s *Sender) SendDigest(to, topic string, papers []DigestPaper, newCount int, attachments []Attachment) error {
	html, err := RenderDigest(topic, time.Now(), papers, newCount)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:          []string{to},
		Subject:     fmt.Sprintf("%s - %d papers", topic, len(papers)),
		HTML:        html,
		Attachments: CapAttachments(attachments, maxAttachmentBytes),
	})
}

// CapAttachments keeps attachments in order until adding the next one
// would push the total past limit.
func CapAttachments(in []Attachment, limit int) []Attachment {
	var out []Attachment
	total := 0
	for _, att := range in {
		if total+len(att.Data) > limit {
			continue
		}
		total += len(att.Data)
		out = append(out, att)
	}
	return out
}
