package intel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/market-intel/internal/application"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/history"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local)

type fakeGenerator struct {
	mu      sync.Mutex
	resp    report.RawResponse
	err     error
	block   chan struct{}
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, p string) (report.RawResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return report.RawResponse{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeResponder struct {
	mu     sync.Mutex
	answer string
	err    error
	block  chan struct{}
	reqs   []report.FollowUpRequest
}

func (f *fakeResponder) Ask(ctx context.Context, req report.FollowUpRequest) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.answer, f.err
}

// gatedBackend holds Save until released so the ANALYZING phase can be observed.
type gatedBackend struct {
	*history.MemoryBackend
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedBackend) Save(ctx context.Context, data []byte) error {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	return g.MemoryBackend.Save(ctx, data)
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("bucket gone")
}

type fixture struct {
	svc  *Service
	sess *Session
	gen  *fakeGenerator
	resp *fakeResponder
	hook *test.Hook
}

func newFixture(t *testing.T, backend history.Backend) *fixture {
	t.Helper()
	if backend == nil {
		backend = history.NewMemoryBackend(nil)
	}
	log, hook := test.NewNullLogger()
	store, err := history.New(context.Background(), backend, log)
	require.NoError(t, err)

	n := 0
	gen := &fakeGenerator{}
	resp := &fakeResponder{}
	svc := &Service{
		Generator: gen,
		Responder: resp,
		History:   store,
		Clock:     application.FixedClock{T: fixedNow},
		Log:       log,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
	sess := NewSession(svc, WithProgressInterval(time.Millisecond), WithJitter(func() float64 { return 0.5 }))
	return &fixture{svc: svc, sess: sess, gen: gen, resp: resp, hook: hook}
}

func acmeResponse() report.RawResponse {
	return report.RawResponse{
		Text: "DOMAIN_START{\"domain\":\"acme.com\"}DOMAIN_END\n### Company Overview\nAcme builds radios.",
		Chunks: []report.Chunk{
			{Web: &report.WebRef{URI: "https://acme.com/news"}},
			{Web: &report.WebRef{URI: ""}},
			{},
			{Web: &report.WebRef{URI: "https://press.example", Title: "Press"}},
		},
	}
}

// brokenBackend loads fine but refuses every save.
type brokenBackend struct{ *history.MemoryBackend }

func (brokenBackend) Save(context.Context, []byte) error { return errors.New("disk full") }
