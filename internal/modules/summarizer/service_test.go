package summarizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/config"
	"github.com/dywsy21/Cecilia/internal/models"
	"github.com/dywsy21/Cecilia/internal/pkg/mail"
	"github.com/dywsy21/Cecilia/internal/pkg/push"
)

type fakeFetcher struct {
	mu     sync.Mutex
	papers []models.PaperRecord
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, sub models.Subscription) ([]models.PaperRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.papers, f.err
}

type fakeExtractor struct {
	failFor map[string]bool
}

func (f *fakeExtractor) Download(ctx context.Context, paperID, pdfURL string) (string, error) {
	if f.failFor[paperID] {
		return "", fmt.Errorf("download failed for %s", paperID)
	}
	return "/tmp/" + paperID + ".pdf", nil
}

func (f *fakeExtractor) Extract(path string) (string, error) {
	return "extracted text of " + path, nil
}

func (f *fakeExtractor) ReadPDF(path string) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

type fakeEngine struct {
	mu          sync.Mutex
	unavailable error
	availCalls  int
	sumCalls    int
}

func (f *fakeEngine) Available(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availCalls++
	return f.unavailable
}

func (f *fakeEngine) Summarize(ctx context.Context, title, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumCalls++
	return "## 摘要\n" + title, nil
}

func (f *fakeEngine) Model() string { return "fake-model" }

type fakeRegistry struct {
	subscribers []string
}

func (f *fakeRegistry) SubscribersFor(topicKey string) []string { return f.subscribers }

type fakePusher struct {
	mu       sync.Mutex
	messages []push.Message
	users    []string
	err      error
}

func (f *fakePusher) Send(ctx context.Context, userID string, msg push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, userID)
	f.messages = append(f.messages, msg)
	return nil
}

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	sent    []string
	err     error
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) SendDigest(to, topic string, papers []mail.DigestPaper, newCount int, attachments []mail.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func samplePapers(n int) []models.PaperRecord {
	papers := make([]models.PaperRecord, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("2401.%05dv1", i+1)
		papers = append(papers, models.PaperRecord{
			ID:      id,
			Title:   fmt.Sprintf("Paper %d", i+1),
			Authors: []string{"Author A"},
			PDFURL:  "http://arxiv.org/pdf/" + id,
		})
	}
	return papers
}

type testHarness struct {
	svc      *Service
	fetcher  *fakeFetcher
	engine   *fakeEngine
	pusher   *fakePusher
	mailer   *fakeMailer
	registry *fakeRegistry
}

func newHarness(t *testing.T, papers []models.PaperRecord) *testHarness {
	t.Helper()
	h := &testHarness{
		fetcher:  &fakeFetcher{papers: papers},
		engine:   &fakeEngine{},
		pusher:   &fakePusher{},
		mailer:   &fakeMailer{},
		registry: &fakeRegistry{subscribers: []string{"123456789"}},
	}
	store := NewStore(t.TempDir())
	h.svc = NewService(h.fetcher, &fakeExtractor{failFor: map[string]bool{}}, h.engine,
		store, h.registry, h.pusher, h.mailer, config.AppConfig{}, zap.NewNop())
	return h
}

var csAI = models.Subscription{Category: "cs", Topic: "AI"}

func TestRunColdStartSummarizesEverything(t *testing.T) {
	h := newHarness(t, samplePapers(3))

	result, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.NewCount)
	assert.Equal(t, 0, result.CachedCount)
	assert.Equal(t, 3, h.engine.sumCalls)
	assert.Equal(t, 1, h.engine.availCalls)
	assert.NotEmpty(t, result.RunID)

	// Header card plus one card per paper.
	assert.Len(t, h.pusher.messages, 4)
	assert.Equal(t, 1, result.PushSent)
}

func TestRunWarmSkipsProcessed(t *testing.T) {
	h := newHarness(t, samplePapers(3))

	_, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)

	h.pusher.messages = nil
	result, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewCount)
	assert.Equal(t, 3, h.engine.sumCalls, "no re-summarization on the warm run")
	assert.Empty(t, h.pusher.messages, "empty run stays silent without NotifyOnEmpty")
}

func TestRunNotifyOnEmptySendsHeader(t *testing.T) {
	h := newHarness(t, nil)

	result, err := h.svc.Run(context.Background(), csAI, RunOptions{NotifyOnEmpty: true})
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewCount)
	require.Len(t, h.pusher.messages, 1)
	assert.Contains(t, h.pusher.messages[0].Embed.Description, "共 0 篇")
}

func TestRunSendAllReusesStoredSummaries(t *testing.T) {
	h := newHarness(t, samplePapers(4))

	_, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, h.engine.sumCalls)

	h.pusher.messages = nil
	result, err := h.svc.Run(context.Background(), csAI, RunOptions{SendAll: true})
	require.NoError(t, err)

	assert.Equal(t, 4, result.CachedCount)
	assert.Equal(t, 0, result.NewCount)
	assert.Equal(t, 4, h.engine.sumCalls, "send-all must not call the model")
	assert.Equal(t, 1, h.engine.availCalls, "availability only checked when new papers exist")
	assert.Len(t, h.pusher.messages, 5)
}

func TestRunAbsorbsPerPaperFailures(t *testing.T) {
	h := newHarness(t, samplePapers(10))
	extractor := &fakeExtractor{failFor: map[string]bool{
		"2401.00003v1": true,
		"2401.00007v1": true,
	}}
	h.svc.extractor = extractor

	result, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 8, result.NewCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Len(t, result.Papers, 8)
}

func TestRunFallsBackToAbstractWithoutPDF(t *testing.T) {
	h := newHarness(t, []models.PaperRecord{
		{ID: "2401.00001v1", Title: "No PDF", Abstract: "abstract only"},
	})

	result, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewCount)
	assert.Equal(t, 0, result.SkippedCount)
}

func TestRunAbortsWhenSummarizerUnavailable(t *testing.T) {
	h := newHarness(t, samplePapers(2))
	h.engine.unavailable = errors.New("ollama down")

	_, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama down")
	assert.Equal(t, 0, h.engine.sumCalls)
	assert.Empty(t, h.pusher.messages)
}

func TestRunFetchErrorAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.err = errors.New("arxiv 503")

	_, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.Error(t, err)
	assert.Empty(t, h.pusher.messages)
}

func TestRunDispatchFailureDoesNotFailRun(t *testing.T) {
	h := newHarness(t, samplePapers(1))
	h.registry.subscribers = []string{"111", "222"}
	h.pusher.err = errors.New("pusher offline")

	result, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PushFailed)
	assert.Equal(t, 0, result.PushSent)
}

func TestRunSplitsEmailAndPushRecipients(t *testing.T) {
	h := newHarness(t, samplePapers(2))
	h.registry.subscribers = []string{"123456789", "reader@example.com"}
	h.mailer.enabled = true

	result, err := h.svc.Run(context.Background(), csAI, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PushSent)
	assert.Equal(t, 1, result.EmailsSent)
	assert.Equal(t, []string{"reader@example.com"}, h.mailer.sent)
}

func TestRunSameTopicMutuallyExclusive(t *testing.T) {
	h := newHarness(t, samplePapers(5))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Run(context.Background(), csAI, RunOptions{})
			assert.NoError(t, err)
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent runs deadlocked")
	}

	// Serialized runs mean the papers were summarized exactly once.
	assert.Equal(t, 5, h.engine.sumCalls)
}
