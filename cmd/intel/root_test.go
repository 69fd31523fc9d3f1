package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/market-intel/internal/application"
	"github.com/bryanwahyu/market-intel/internal/application/intel"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/history"
)

type stubAI struct {
	block  chan struct{}
	genErr error
	answer string
	askErr error
}

func (s *stubAI) Generate(context.Context, string) (report.RawResponse, error) {
	if s.block != nil {
		<-s.block
	}
	if s.genErr != nil {
		return report.RawResponse{}, s.genErr
	}
	return report.RawResponse{
		Text: "DOMAIN_START{\"domain\":\"elbitsystems.com\"}DOMAIN_END\n### Company Overview\nElbit Systems builds avionics.",
		Chunks: []report.Chunk{
			{Web: &report.WebRef{URI: "https://elbitsystems.com/news", Title: "News"}},
		},
	}, nil
}

func (s *stubAI) Ask(context.Context, report.FollowUpRequest) (string, error) {
	return s.answer, s.askErr
}

func newTestEnv(t *testing.T, ai *stubAI) opener {
	t.Helper()
	log, _ := test.NewNullLogger()
	store, err := history.New(context.Background(), history.NewMemoryBackend(nil), log)
	require.NoError(t, err)
	svc := &intel.Service{
		Generator: ai,
		Responder: ai,
		History:   store,
		Clock:     application.FixedClock{T: time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local)},
		Log:       log,
		NewID:     func() string { return "rep-1" },
	}
	e := &env{svc: svc, sess: intel.NewSession(svc, intel.WithProgressInterval(time.Millisecond))}
	return func(context.Context) (*env, error) { return e, nil }
}

func execute(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), open, args...)
}

func executeContext(t *testing.T, ctx context.Context, open opener, args ...string) (string, error) {
	t.Helper()
	cmd, closeEnv := newRootCmd(open)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	require.NoError(t, closeEnv())
	return out.String(), err
}

func TestAnalyzeAskAndHistory(t *testing.T) {
	ai := &stubAI{answer: "Roughly 18,000 employees."}
	open := newTestEnv(t, ai)

	out, err := execute(t, open, "analyze", "Elbit", "Systems", "--lang", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Elbit Systems")
	assert.NotContains(t, out, "DOMAIN_START")

	out, err = execute(t, open, "ask", "rep-1", "How", "many", "employees?")
	require.NoError(t, err)
	assert.Contains(t, out, "Roughly 18,000 employees.")

	out, err = execute(t, open, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "rep-1")
	assert.Contains(t, out, "page 1/1, 1 reports")

	out, err = execute(t, open, "history", "show", "rep-1")
	require.NoError(t, err)
	assert.Contains(t, out, "How many employees?")

	out, err = execute(t, open, "text", "rep-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Elbit Systems builds avionics.")
}

func TestAnalyzeFailureReturnsMessage(t *testing.T) {
	open := newTestEnv(t, &stubAI{genErr: errors.New("upstream unavailable")})

	_, err := execute(t, open, "analyze", "Acme")
	require.Error(t, err)
	assert.Equal(t, "upstream unavailable", err.Error())
}

func TestAnalyzeRejectsLanguage(t *testing.T) {
	open := newTestEnv(t, &stubAI{})
	_, err := execute(t, open, "analyze", "Acme", "--lang", "fr")
	assert.ErrorIs(t, err, report.ErrUnsupportedLanguage)
}

func TestAskFailureIsReported(t *testing.T) {
	ai := &stubAI{}
	open := newTestEnv(t, ai)
	_, err := execute(t, open, "analyze", "Acme")
	require.NoError(t, err)

	ai.askErr = errors.New("model offline")
	out, err := execute(t, open, "ask", "rep-1", "revenue?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
	assert.Contains(t, out, "revenue?")
}

func TestExportWritesFile(t *testing.T) {
	open := newTestEnv(t, &stubAI{})
	_, err := execute(t, open, "analyze", "Elbit Systems", "--lang", "en")
	require.NoError(t, err)

	dir := t.TempDir()
	out, err := execute(t, open, "export", "rep-1", "-o", dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "Elbit_Systems_Intelligence_Report_2025.html")
	assert.Equal(t, path, strings.TrimSpace(out))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Confidential Market Intelligence Report")
}

func TestDeleteAndClear(t *testing.T) {
	open := newTestEnv(t, &stubAI{})
	_, err := execute(t, open, "analyze", "Acme")
	require.NoError(t, err)

	_, err = execute(t, open, "history", "delete", "missing")
	assert.ErrorIs(t, err, report.ErrNotFound)

	out, err := execute(t, open, "history", "delete", "rep-1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted rep-1")

	out, err = execute(t, open, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "history cleared")

	out, err = execute(t, open, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no reports yet")
}

func TestInterruptedAnalyzeStillClosesEnv(t *testing.T) {
	ai := &stubAI{block: make(chan struct{})}
	defer close(ai.block)
	base := newTestEnv(t, ai)

	closed := 0
	open := func(ctx context.Context) (*env, error) {
		e, err := base(ctx)
		if err != nil {
			return nil, err
		}
		e.close = func() error { closed++; return nil }
		return e, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := executeContext(t, ctx, open, "analyze", "Acme")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, closed)
}

func TestAnalyzeHelpUsesPlaceholder(t *testing.T) {
	cmd, _ := newRootCmd(newTestEnv(t, &stubAI{}))
	analyze, _, err := cmd.Find([]string{"analyze"})
	require.NoError(t, err)
	assert.Contains(t, analyze.Example, intel.MessagesFor(report.DefaultLanguage).Placeholder)
}
