package verification

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/config"
	"github.com/dywsy21/Cecilia/internal/models"
)

var (
	// ErrSessionExpired is returned when the code arrived after the
	// session TTL; the session is deleted on the way out.
	ErrSessionExpired = errors.New("verification: session expired")
	// ErrAttemptsExhausted is returned once the attempt cap is hit.
	// The cap is checked after the atomic increment, so the attempt
	// that crosses it fails even with the correct code.
	ErrAttemptsExhausted = errors.New("verification: too many attempts")
)

// CodeMismatchError reports a wrong code and how many tries remain.
type CodeMismatchError struct {
	Remaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("verification: wrong code, %d attempts remaining", e.Remaining)
}

// OverlapError rejects a new subscription whose topics are already
// verified for the email.
type OverlapError struct {
	Topics []string
}

func (e *OverlapError) Error() string {
	return "verification: already subscribed to " + strings.Join(e.Topics, ", ")
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const maxTopicsPerRequest = 20

// RegistryWriter is the slice of the subscription registry the flow
// needs: overlap checks before, promotion after.
type RegistryWriter interface {
	Add(subscriber string, sub models.Subscription) (bool, error)
	List(subscriber string) []models.Subscription
}

// CodeMailer sends the verification email.
type CodeMailer interface {
	Enabled() bool
	SendVerificationCode(to, code string, topics []string, ttl time.Duration) error
}

// Service drives the create → verify → promote flow.
type Service struct {
	store    SessionStore
	registry RegistryWriter
	mailer   CodeMailer
	cfg      config.VerificationConfig
	log      *zap.Logger

	now func() time.Time
}

func NewService(store SessionStore, registry RegistryWriter, mailer CodeMailer,
	cfg config.VerificationConfig, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Create opens a pending session and emails the code. The returned
// token identifies the session in verify and resend calls.
func (s *Service) Create(ctx context.Context, email string, topics []string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("verification: invalid email address")
	}
	normalized, err := normalizeTopics(topics)
	if err != nil {
		return "", err
	}
	if overlap := s.overlappingTopics(email, normalized); len(overlap) > 0 {
		return "", &OverlapError{Topics: overlap}
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	code, err := newCode()
	if err != nil {
		return "", err
	}

	now := s.now()
	session := models.PendingVerification{
		Token:     token,
		Email:     email,
		Topics:    normalized,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL()),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return "", err
	}

	if err := s.mailer.SendVerificationCode(email, code, normalized, s.cfg.TTL()); err != nil {
		// No code in the inbox means the session can never complete.
		s.store.Delete(ctx, token)
		return "", fmt.Errorf("verification: send code: %w", err)
	}

	s.log.Info("verification session created",
		zap.String("email", email), zap.Strings("topics", normalized))
	return token, nil
}

// Verify checks the code and, on success, promotes every topic into
// the registry and consumes the session. A consumed session is gone:
// verifying it again reports not-found.
func (s *Service) Verify(ctx context.Context, token, code string) (string, error) {
	session, err := s.store.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if session.Expired(s.now()) {
		s.store.Delete(ctx, token)
		return "", ErrSessionExpired
	}

	attempts, err := s.store.IncrementAttempts(ctx, token)
	if err != nil {
		return "", err
	}
	if attempts > s.cfg.MaxAttempts {
		return "", ErrAttemptsExhausted
	}
	if code != session.Code {
		remaining := s.cfg.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return "", &CodeMismatchError{Remaining: remaining}
	}

	for _, topic := range session.Topics {
		if _, err := s.registry.Add(session.Email, models.ParseTopic(topic)); err != nil {
			return "", fmt.Errorf("verification: promote %s: %w", topic, err)
		}
	}
	if err := s.store.Delete(ctx, token); err != nil {
		s.log.Warn("verified session cleanup failed", zap.Error(err))
	}

	s.log.Info("email verified",
		zap.String("email", session.Email), zap.Strings("topics", session.Topics))
	return session.Email, nil
}

// Resend issues a fresh code for an open session and resets the
// attempt counter.
func (s *Service) Resend(ctx context.Context, token string) error {
	session, err := s.store.Get(ctx, token)
	if err != nil {
		return err
	}
	if session.Expired(s.now()) {
		s.store.Delete(ctx, token)
		return ErrSessionExpired
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	now := s.now()
	session.Code = code
	session.Attempts = 0
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.cfg.TTL())
	if err := s.store.Update(ctx, session); err != nil {
		return err
	}
	return s.mailer.SendVerificationCode(session.Email, code, session.Topics, s.cfg.TTL())
}

// Sweep removes expired sessions; wired as a periodic job.
func (s *Service) Sweep(ctx context.Context) int {
	return s.store.Sweep(ctx, s.now())
}

// overlappingTopics intersects the requested topics with the email's
// already-verified subscriptions.
func (s *Service) overlappingTopics(email string, topics []string) []string {
	existing := s.registry.List(email)
	var overlap []string
	for _, topic := range topics {
		sub := models.ParseTopic(topic)
		for _, have := range existing {
			if have.Equal(sub) {
				overlap = append(overlap, sub.String())
				break
			}
		}
	}
	return overlap
}

// normalizeTopics validates count, category and shape, and collapses
// duplicates while preserving order.
func normalizeTopics(topics []string) ([]string, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("verification: at least one topic is required")
	}
	if len(topics) > maxTopicsPerRequest {
		return nil, fmt.Errorf("verification: at most %d topics per request", maxTopicsPerRequest)
	}

	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, raw := range topics {
		sub := models.ParseTopic(raw)
		if sub.Topic == "" {
			return nil, fmt.Errorf("verification: empty topic")
		}
		if !models.ValidCategory(strings.ToLower(sub.Category)) {
			return nil, fmt.Errorf("verification: unknown arXiv category in %q", raw)
		}
		key := strings.ToLower(sub.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sub.String())
	}
	return out, nil
}

// newToken returns a URL-safe random session token.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("verification: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newCode returns a random 6-digit code with leading zeros kept.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("verification: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
