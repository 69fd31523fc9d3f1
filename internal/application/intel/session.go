package intel

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/market-intel/internal/domain/analysis"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

const DefaultProgressInterval = time.Second

// Snapshot is a read-only view of the session for polling clients.
type Snapshot struct {
	Status   analysis.Status            `json:"status"`
	Progress int                        `json:"progress"`
	Error    string                     `json:"error,omitempty"`
	Company  string                     `json:"company,omitempty"`
	Language report.Language            `json:"language"`
	Report   *report.IntelligenceReport `json:"report,omitempty"`
	Asking   bool                       `json:"asking"`
}

// Session drives one analysis view: the status machine, the cosmetic
// progress value and which report is on display.
type Session struct {
	svc      *Service
	interval time.Duration
	jitter   func() float64

	mu       sync.Mutex
	status   analysis.Status
	progress float64
	errMsg   string
	company  string
	lang     report.Language
	current  report.ReportID
	done     chan struct{}

	tickers atomic.Int32
}

type SessionOption func(*Session)

// WithProgressInterval sets the ticker period.
func WithProgressInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithJitter replaces the random source; f must return values in [0,1).
func WithJitter(f func() float64) SessionOption {
	return func(s *Session) { s.jitter = f }
}

func NewSession(svc *Service, opts ...SessionOption) *Session {
	s := &Session{
		svc:      svc,
		interval: DefaultProgressInterval,
		jitter:   rand.Float64,
		status:   analysis.StatusIdle,
		lang:     report.DefaultLanguage,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze runs a whole generation synchronously and returns the stored report.
func (s *Session) Analyze(ctx context.Context, company string, lang report.Language) (*report.IntelligenceReport, error) {
	company, err := s.begin(company, lang)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, company, lang)
}

// Start enters SEARCHING and runs the generation in the background.
// The returned channel receives this run's outcome exactly once, so callers
// never confuse it with a later run.
// jalanin pakai context.Background() supaya gak kena request context canceled
func (s *Session) Start(company string, lang report.Language) (Snapshot, <-chan error, error) {
	company, err := s.begin(company, lang)
	if err != nil {
		return Snapshot{}, nil, err
	}
	snap := s.Snapshot()
	result := make(chan error, 1)
	go func() {
		_, err := s.run(context.Background(), company, lang)
		result <- err
	}()
	return snap, result, nil
}

// Wait blocks until the in-flight generation (if any) settles.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) begin(company string, lang report.Language) (string, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", report.ErrEmptyCompany
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.InFlight() {
		return "", report.ErrAnalysisInFlight
	}
	next, err := analysis.Transition(s.status, analysis.StatusSearching)
	if err != nil {
		return "", err
	}
	s.status = next
	s.progress = analysis.ProgressStart
	s.errMsg = ""
	s.company = company
	s.lang = lang
	s.current = ""
	s.done = make(chan struct{})
	return company, nil
}

func (s *Session) run(ctx context.Context, company string, lang report.Language) (*report.IntelligenceReport, error) {
	stop := s.startTicker()
	defer stop()

	// jalankan generator sekali, tanpa retry
	raw, err := s.svc.Generator.Generate(ctx, s.svc.reportPrompt(company, lang))
	if err != nil {
		stop()
		s.svc.logger().WithError(err).WithField("company", company).Error("report generation failed")
		s.fail(err, lang)
		return nil, err
	}

	s.moveTo(analysis.StatusAnalyzing)
	r := s.svc.Assemble(company, lang, raw)
	if err := s.svc.History.Append(ctx, r); err != nil {
		stop()
		s.svc.logger().WithError(err).WithField("company", company).Error("saving report failed")
		s.fail(err, lang)
		return nil, err
	}

	stop()
	s.finish(r.ID)
	return r, nil
}

func (s *Session) moveTo(to analysis.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next, err := analysis.Transition(s.status, to); err == nil {
		s.status = next
	}
}

func (s *Session) fail(err error, lang report.Language) {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = MessagesFor(lang).AnalysisFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = analysis.StatusError
	s.errMsg = msg
	s.settle()
}

func (s *Session) finish(id report.ReportID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = analysis.StatusCompleted
	s.progress = analysis.ProgressDone
	s.current = id
	s.settle()
}

// settle must be called with mu held.
func (s *Session) settle() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// startTicker advances progress every interval while a call is in flight.
// The returned stop func is idempotent and waits for the goroutine to exit.
func (s *Session) startTicker() func() {
	t := time.NewTicker(s.interval)
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	s.tickers.Add(1)
	go func() {
		defer wg.Done()
		defer s.tickers.Add(-1)
		for {
			select {
			case <-quit:
				return
			case <-t.C:
				s.tick()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(quit)
			wg.Wait()
		})
	}
}

func (s *Session) tick() {
	j := s.jitter()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.InFlight() {
		s.progress = analysis.Advance(s.progress, j)
	}
}

// Reset starts a new analysis (IDLE). Not allowed while in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == analysis.StatusIdle {
		return nil
	}
	next, err := analysis.Transition(s.status, analysis.StatusIdle)
	if err != nil {
		return report.ErrAnalysisInFlight
	}
	s.status = next
	s.progress = 0
	s.errMsg = ""
	s.company = ""
	s.current = ""
	return nil
}

// Select displays a stored report (COMPLETED).
func (s *Session) Select(id report.ReportID) (Snapshot, error) {
	r, err := s.svc.History.Get(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.status.InFlight() {
		s.mu.Unlock()
		return Snapshot{}, report.ErrAnalysisInFlight
	}
	next, err := analysis.Transition(s.status, analysis.StatusCompleted)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	s.status = next
	s.progress = analysis.ProgressDone
	s.errMsg = ""
	s.company = r.CompanyName
	s.lang = r.Language
	s.current = r.ID
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// Delete removes a stored report; the display is cleared when it was showing it.
func (s *Session) Delete(ctx context.Context, id report.ReportID) error {
	if err := s.svc.History.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.clearDisplay()
	}
	return nil
}

// Clear empties the history and the display.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.svc.History.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" {
		s.clearDisplay()
	}
	return nil
}

// clearDisplay must be called with mu held.
func (s *Session) clearDisplay() {
	s.current = ""
	if s.status == analysis.StatusCompleted {
		s.status = analysis.StatusIdle
		s.progress = 0
		s.company = ""
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Status:   s.status,
		Progress: int(s.progress),
		Error:    s.errMsg,
		Company:  s.company,
		Language: s.lang,
	}
	current := s.current
	s.mu.Unlock()

	if current != "" {
		if r, err := s.svc.History.Get(current); err == nil {
			snap.Report = r
			snap.Asking = s.svc.Asking(current)
		}
	}
	return snap
}

func (s *Session) Status() analysis.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) activeTickers() int {
	return int(s.tickers.Load())
}
