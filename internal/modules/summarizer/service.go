// Package summarizer orchestrates one topic run: fetch the latest
// papers, summarize the unseen ones, and dispatch the result to every
// subscriber over push and email.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/config"
	"github.com/dywsy21/Cecilia/internal/models"
	"github.com/dywsy21/Cecilia/internal/pkg/mail"
	"github.com/dywsy21/Cecilia/internal/pkg/push"
)

// Fetcher searches for recent papers on a topic.
type Fetcher interface {
	Fetch(ctx context.Context, sub models.Subscription) ([]models.PaperRecord, error)
}

// Extractor downloads paper PDFs and extracts their text.
type Extractor interface {
	Download(ctx context.Context, paperID, pdfURL string) (string, error)
	Extract(path string) (string, error)
	ReadPDF(path string) ([]byte, error)
}

// Summarizer generates summaries; a run aborts when it is unavailable.
type Summarizer interface {
	Available(ctx context.Context) error
	Summarize(ctx context.Context, title, content string) (string, error)
	Model() string
}

// Registry resolves the subscribers of a topic.
type Registry interface {
	SubscribersFor(topicKey string) []string
}

// PushSender delivers a message to one chat user.
type PushSender interface {
	Send(ctx context.Context, userID string, msg push.Message) error
}

// MailSender delivers the digest email.
type MailSender interface {
	Enabled() bool
	SendDigest(to, topic string, papers []mail.DigestPaper, newCount int, attachments []mail.Attachment) error
}

// RunOptions tunes a single run.
type RunOptions struct {
	// SendAll redelivers already-summarized papers from the dedup
	// store instead of skipping them. No model call happens for those.
	SendAll bool
	// NotifyOnEmpty sends a short notice even when nothing new was
	// found. On-demand runs set this; scheduled runs follow config.
	NotifyOnEmpty bool
}

// Service runs topic deliveries. Runs on the same topic are mutually
// exclusive; different topics may run concurrently.
type Service struct {
	fetcher   Fetcher
	extractor Extractor
	engine    Summarizer
	store     *Store
	registry  Registry
	pusher    PushSender
	mailer    MailSender
	cfg       config.AppConfig
	log       *zap.Logger

	mu     sync.Mutex
	topics map[string]*sync.Mutex
}

// NewService wires the orchestrator.
func NewService(fetcher Fetcher, extractor Extractor, engine Summarizer, store *Store,
	registry Registry, pusher PushSender, mailer MailSender, cfg config.AppConfig, log *zap.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		engine:    engine,
		store:     store,
		registry:  registry,
		pusher:    pusher,
		mailer:    mailer,
		cfg:       cfg,
		log:       log,
		topics:    make(map[string]*sync.Mutex),
	}
}

// topicMutex returns the named mutex for a topic key.
func (s *Service) topicMutex(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.topics[key]
	if !ok {
		m = &sync.Mutex{}
		s.topics[key] = m
	}
	return m
}

// Run executes one delivery for a topic. It returns the aggregate even
// on dispatch failures; only fetch errors and summarizer unavailability
// abort the run.
func (s *Service) Run(ctx context.Context, sub models.Subscription, opts RunOptions) (*models.DeliveryResult, error) {
	topicKey := sub.String()
	lock := s.topicMutex(topicKey)
	lock.Lock()
	defer lock.Unlock()

	result := &models.DeliveryResult{
		RunID:     uuid.NewString(),
		Category:  sub.Category,
		Topic:     sub.Topic,
		SendAll:   opts.SendAll,
		StartedAt: time.Now(),
	}
	log := s.log.With(zap.String("run_id", result.RunID), zap.String("topic", topicKey))

	papers, err := s.fetcher.Fetch(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", topicKey, err)
	}
	log.Info("fetched papers", zap.Int("count", len(papers)))

	// Partition before touching the model so a fully-cached run never
	// needs the backend at all.
	var fresh []models.PaperRecord
	for _, paper := range papers {
		if s.store.IsProcessed(topicKey, paper.ID) {
			if opts.SendAll {
				if entry, ok := s.store.Load(topicKey, paper.ID); ok {
					result.Papers = append(result.Papers, models.DeliveredPaper{Entry: entry, Cached: true})
					result.CachedCount++
				}
			}
			continue
		}
		fresh = append(fresh, paper)
	}

	if len(fresh) > 0 {
		if err := s.engine.Available(ctx); err != nil {
			return nil, fmt.Errorf("run %s: %w", topicKey, err)
		}
	}

	for _, paper := range fresh {
		entry, err := s.processPaper(ctx, topicKey, paper)
		if err != nil {
			result.SkippedCount++
			log.Warn("paper skipped", zap.String("paper", paper.ID), zap.Error(err))
			continue
		}
		result.Papers = append(result.Papers, models.DeliveredPaper{Entry: entry})
		result.NewCount++
	}

	if len(result.Papers) == 0 && !opts.NotifyOnEmpty {
		result.FinishedAt = time.Now()
		log.Info("nothing to deliver", zap.Int("skipped", result.SkippedCount))
		return result, nil
	}

	s.dispatch(ctx, topicKey, result, log)
	result.FinishedAt = time.Now()
	log.Info("run finished",
		zap.Int("new", result.NewCount),
		zap.Int("cached", result.CachedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("push_sent", result.PushSent),
		zap.Int("emails_sent", result.EmailsSent))
	return result, nil
}

// processPaper takes one unseen paper through download, extraction and
// summarization, then records it in the dedup store.
func (s *Service) processPaper(ctx context.Context, topicKey string, paper models.PaperRecord) (models.ProcessedEntry, error) {
	text, err := s.paperText(ctx, paper)
	if err != nil {
		return models.ProcessedEntry{}, err
	}
	summary, err := s.engine.Summarize(ctx, paper.Title, text)
	if err != nil {
		return models.ProcessedEntry{}, err
	}

	entry := models.ProcessedEntry{
		PaperID:     paper.ID,
		Title:       paper.Title,
		Authors:     paper.Authors,
		PDFURL:      paper.PDFURL,
		Summary:     summary,
		Categories:  paper.Categories,
		ProcessedAt: time.Now(),
	}
	if err := s.store.MarkProcessed(topicKey, entry); err != nil {
		return models.ProcessedEntry{}, err
	}
	return entry, nil
}

// paperText returns the content handed to the model: the extracted PDF
// text, or the abstract when the feed carried no PDF link. A failed
// download or extraction is a per-paper error, not an abstract
// fallback.
func (s *Service) paperText(ctx context.Context, paper models.PaperRecord) (string, error) {
	if paper.PDFURL == "" {
		if paper.Abstract == "" {
			return "", fmt.Errorf("paper %s has neither pdf nor abstract", paper.ID)
		}
		return paper.Abstract, nil
	}
	path, err := s.extractor.Download(ctx, paper.ID, paper.PDFURL)
	if err != nil {
		return "", err
	}
	return s.extractor.Extract(path)
}

// dispatch fans the result out to every subscriber. Failures are
// counted per recipient and never block the others.
func (s *Service) dispatch(ctx context.Context, topicKey string, result *models.DeliveryResult, log *zap.Logger) {
	subscribers := s.registry.SubscribersFor(topicKey)
	if len(subscribers) == 0 {
		log.Info("no subscribers for topic")
		return
	}

	var emailBody []mail.DigestPaper
	var attachments []mail.Attachment
	mailWanted := s.mailer != nil && s.mailer.Enabled() && hasEmailSubscriber(subscribers)
	if mailWanted {
		emailBody, attachments = s.buildDigest(ctx, result)
	}

	for _, subscriber := range subscribers {
		if models.IsEmail(subscriber) {
			if !mailWanted {
				continue
			}
			if err := s.mailer.SendDigest(subscriber, topicKey, emailBody, result.NewCount, attachments); err != nil {
				result.EmailsFailed++
				log.Warn("digest email failed", zap.String("to", subscriber), zap.Error(err))
			} else {
				result.EmailsSent++
			}
			continue
		}
		if err := s.pushToUser(ctx, subscriber, result); err != nil {
			result.PushFailed++
			log.Warn("push failed", zap.String("user", subscriber), zap.Error(err))
		} else {
			result.PushSent++
		}
	}
}

// pushToUser sends the header card followed by one card per paper.
func (s *Service) pushToUser(ctx context.Context, userID string, result *models.DeliveryResult) error {
	if err := s.pusher.Send(ctx, userID, buildHeaderMessage(result, s.engine.Model())); err != nil {
		return err
	}
	for i, paper := range result.Papers {
		if err := s.pusher.Send(ctx, userID, buildPaperMessage(i, paper)); err != nil {
			return err
		}
	}
	return nil
}

// buildDigest renders the email sections and gathers PDF attachments
// from the local cache. Attachment failures degrade to a link-only
// digest.
func (s *Service) buildDigest(ctx context.Context, result *models.DeliveryResult) ([]mail.DigestPaper, []mail.Attachment) {
	papers := make([]mail.DigestPaper, 0, len(result.Papers))
	var attachments []mail.Attachment

	for i, paper := range result.Papers {
		entry := paper.Entry
		papers = append(papers, mail.DigestPaper{
			Index:       i + 1,
			Title:       entry.Title,
			Authors:     joinComma(entry.Authors),
			Categories:  joinComma(entry.Categories),
			PDFURL:      entry.PDFURL,
			SummaryHTML: mail.MarkdownToHTML(entry.Summary),
		})

		if !s.cfg.Mail.AttachPDFs {
			continue
		}
		path, err := s.extractor.Download(ctx, entry.PaperID, entry.PDFURL)
		if err != nil {
			continue
		}
		data, err := s.extractor.ReadPDF(path)
		if err != nil {
			continue
		}
		attachments = append(attachments, mail.Attachment{
			Filename: fmt.Sprintf("%d_%s.pdf", i+1, entry.PaperID),
			Data:     data,
		})
	}
	return papers, attachments
}

func hasEmailSubscriber(subscribers []string) bool {
	for _, s := range subscribers {
		if models.IsEmail(s) {
			return true
		}
	}
	return false
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
