package intel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/market-intel/internal/domain/analysis"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/history"
)

func TestAnalyzeSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = acmeResponse()

	r, err := f.sess.Analyze(context.Background(), "  Acme  ", report.LanguageEN)
	require.NoError(t, err)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "Acme", r.CompanyName)
	assert.Equal(t, "acme.com", r.Website)
	assert.Equal(t, "https://logo.clearbit.com/acme.com", r.LogoURL)
	assert.Equal(t, "### Company Overview\nAcme builds radios.", r.Content)
	assert.Equal(t, []report.GroundingSource{{URI: "https://acme.com/news"}, {URI: "https://press.example", Title: "Press"}}, r.Sources)
	assert.Equal(t, "2025-06-01 09:30:00", r.Timestamp)
	assert.Equal(t, report.LanguageEN, r.Language)
	assert.Empty(t, r.ChatHistory)

	snap := f.sess.Snapshot()
	assert.Equal(t, analysis.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.Report)
	assert.Equal(t, r.ID, snap.Report.ID)
	assert.Zero(t, f.sess.activeTickers())

	list := f.svc.History.List()
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)

	p := f.gen.lastPrompt()
	assert.Contains(t, p, `"Acme" + "launch"`)
	assert.Contains(t, p, "### 2025 News & Updates")
}

func TestAnalyzeFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.err = errors.New("network unreachable")

	_, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageZH)
	require.Error(t, err)

	snap := f.sess.Snapshot()
	assert.Equal(t, analysis.StatusError, snap.Status)
	assert.Equal(t, "network unreachable", snap.Error)
	assert.Nil(t, snap.Report)
	assert.Zero(t, f.svc.History.Len())
	assert.Zero(t, f.sess.activeTickers())
}

func TestAnalyzeFailureWithBlankMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.err = errors.New("")

	_, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.Error(t, err)
	assert.Equal(t, "An error occurred during analysis. Please try again.", f.sess.Snapshot().Error)
}

func TestAnalyzeRecoversAfterError(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.err = errors.New("boom")
	_, _ = f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.Equal(t, analysis.StatusError, f.sess.Status())

	f.gen.err = nil
	f.gen.resp = acmeResponse()
	_, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.NoError(t, err)

	snap := f.sess.Snapshot()
	assert.Equal(t, analysis.StatusCompleted, snap.Status)
	assert.Empty(t, snap.Error)
}

func TestAnalyzeRejectsBlankCompany(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.sess.Analyze(context.Background(), "   ", report.LanguageEN)
	assert.ErrorIs(t, err, report.ErrEmptyCompany)
	assert.Equal(t, analysis.StatusIdle, f.sess.Status())
	assert.Empty(t, f.gen.prompts)
}

func TestEmptyModelTextUsesFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = report.RawResponse{Text: "   "}

	r, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageZH)
	require.NoError(t, err)
	assert.Equal(t, "未能生成报告。", r.Content)
	assert.Empty(t, r.Website)
}

func TestMalformedDomainIsLoggedNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = report.RawResponse{Text: "DOMAIN_START{oops}DOMAIN_END\n### Overview"}

	r, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.NoError(t, err)
	assert.Empty(t, r.Website)
	assert.Empty(t, r.LogoURL)
	assert.Contains(t, r.Content, "DOMAIN_START")

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestStartRunsInBackgroundAndBlocksResubmit(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = acmeResponse()
	f.gen.block = make(chan struct{})

	snap, _, err := f.sess.Start("Acme", report.LanguageEN)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusSearching, snap.Status)
	assert.Equal(t, analysis.ProgressStart, snap.Progress)

	_, _, err = f.sess.Start("Other", report.LanguageEN)
	assert.ErrorIs(t, err, report.ErrAnalysisInFlight)
	assert.ErrorIs(t, f.sess.Reset(), report.ErrAnalysisInFlight)

	// the ticker moves progress while searching but never to completion
	require.Eventually(t, func() bool {
		return f.sess.Snapshot().Progress > analysis.ProgressStart
	}, time.Second, time.Millisecond)
	assert.Less(t, f.sess.Snapshot().Progress, analysis.ProgressDone)

	close(f.gen.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.sess.Wait(ctx))

	assert.Equal(t, analysis.StatusCompleted, f.sess.Status())
	assert.Zero(t, f.sess.activeTickers())
}

func TestAnalyzingPhaseIsObservable(t *testing.T) {
	backend := &gatedBackend{
		MemoryBackend: history.NewMemoryBackend(nil),
		gate:          make(chan struct{}),
		entered:       make(chan struct{}),
	}
	f := newFixture(t, backend)
	f.gen.resp = acmeResponse()

	_, done, err := f.sess.Start("Acme", report.LanguageEN)
	require.NoError(t, err)

	<-backend.entered
	assert.Equal(t, analysis.StatusAnalyzing, f.sess.Status())
	_, _, err = f.sess.Start("Acme", report.LanguageEN)
	assert.ErrorIs(t, err, report.ErrAnalysisInFlight)

	close(backend.gate)
	require.NoError(t, <-done)
	assert.Equal(t, analysis.StatusCompleted, f.sess.Status())
}

func TestResetSelectDelete(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = acmeResponse()

	first, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.NoError(t, err)
	second, err := f.sess.Analyze(context.Background(), "Beta", report.LanguageZH)
	require.NoError(t, err)

	require.NoError(t, f.sess.Reset())
	snap := f.sess.Snapshot()
	assert.Equal(t, analysis.StatusIdle, snap.Status)
	assert.Nil(t, snap.Report)

	snap, err = f.sess.Select(first.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, snap.Status)
	assert.Equal(t, first.ID, snap.Report.ID)
	assert.Equal(t, report.LanguageEN, snap.Language)

	_, err = f.sess.Select("missing")
	assert.ErrorIs(t, err, report.ErrNotFound)

	// deleting a report that is not displayed keeps the view
	require.NoError(t, f.sess.Delete(context.Background(), second.ID))
	assert.Equal(t, analysis.StatusCompleted, f.sess.Status())

	// deleting the displayed one clears it
	require.NoError(t, f.sess.Delete(context.Background(), first.ID))
	snap = f.sess.Snapshot()
	assert.Equal(t, analysis.StatusIdle, snap.Status)
	assert.Nil(t, snap.Report)

	assert.ErrorIs(t, f.sess.Delete(context.Background(), first.ID), report.ErrNotFound)
}

func TestClearEmptiesHistoryAndDisplay(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = acmeResponse()
	_, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.NoError(t, err)

	require.NoError(t, f.sess.Clear(context.Background()))
	assert.Zero(t, f.svc.History.Len())
	assert.Equal(t, analysis.StatusIdle, f.sess.Status())
}

func TestWaitWithoutRun(t *testing.T) {
	f := newFixture(t, nil)
	assert.NoError(t, f.sess.Wait(context.Background()))
}

func TestStartResultBelongsToItsRun(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.err = errors.New("upstream unavailable")

	_, first, err := f.sess.Start("Acme", report.LanguageEN)
	require.NoError(t, err)
	assert.EqualError(t, <-first, "upstream unavailable")

	f.gen.mu.Lock()
	f.gen.err = nil
	f.gen.resp = acmeResponse()
	f.gen.block = make(chan struct{})
	f.gen.mu.Unlock()

	_, second, err := f.sess.Start("Acme", report.LanguageEN)
	require.NoError(t, err)

	// the second run is still blocked; its channel must not fire yet
	select {
	case <-second:
		t.Fatal("second run reported before it finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(f.gen.block)
	assert.NoError(t, <-second)
	assert.Equal(t, analysis.StatusCompleted, f.sess.Status())
}

func TestSaveFailureLeavesNothingListed(t *testing.T) {
	f := newFixture(t, brokenBackend{history.NewMemoryBackend(nil)})
	f.gen.resp = acmeResponse()

	_, err := f.sess.Analyze(context.Background(), "Acme", report.LanguageEN)
	require.Error(t, err)

	snap := f.sess.Snapshot()
	assert.Equal(t, analysis.StatusError, snap.Status)
	assert.Contains(t, snap.Error, "disk full")
	assert.Nil(t, snap.Report)
	assert.Zero(t, f.svc.History.Len())
	assert.Equal(t, int64(0), f.svc.Reports(1, 20).Total)
}
