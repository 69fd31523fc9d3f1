package intel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/market-intel/internal/application"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/format"
	"github.com/bryanwahyu/market-intel/internal/history"
	"github.com/bryanwahyu/market-intel/internal/infra/ai/prompt"
)

// Service implements use-cases untuk report: generation, follow-up chat,
// history access and export. Safe for concurrent use.
type Service struct {
	Generator report.Generator
	Responder report.Responder
	History   *history.Store
	// Artifacts is optional; without it exports are only returned inline.
	Artifacts report.ArtifactStore
	Clock     application.Clock
	Log       logrus.FieldLogger
	// NewID defaults to uuid.NewString.
	NewID func() string

	mu     sync.Mutex
	asking map[report.ReportID]bool
}

// FollowUpOutcome enum
type FollowUpOutcome string

const (
	OutcomeAnswered FollowUpOutcome = "answered"
	OutcomeFailed   FollowUpOutcome = "failed"
)

type FollowUpResult struct {
	Outcome FollowUpOutcome            `json:"outcome"`
	Answer  string                     `json:"answer,omitempty"`
	Reason  string                     `json:"reason,omitempty"`
	Report  *report.IntelligenceReport `json:"report"`
}

// Artifact is an exported document.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"-"`
	URL         string `json:"url,omitempty"`
}

// Assemble turns a raw model response into a report. A broken domain block
// is logged and the report keeps empty website and logo.
func (s *Service) Assemble(company string, lang report.Language, raw report.RawResponse) *report.IntelligenceReport {
	text := raw.Text
	if strings.TrimSpace(text) == "" {
		text = prompt.FallbackReport(lang)
	}

	ext := report.ExtractDomain(text)
	if ext.Err != nil {
		s.logger().WithError(ext.Err).WithField("company", company).Warn("domain metadata ignored")
	}

	return &report.IntelligenceReport{
		ID:          s.newID(),
		Content:     ext.Content,
		Sources:     report.FilterSources(raw.Chunks),
		CompanyName: company,
		Timestamp:   s.Clock.Now().Format(application.ReportTimestampLayout),
		Website:     ext.Domain,
		LogoURL:     report.LogoURL(ext.Domain),
		Language:    lang,
	}
}

// Ask appends the question and exactly one model turn (answer, fallback or
// error marker) to the report's chat, then persists it. A failing AI call is
// reported through the result, not the error.
func (s *Service) Ask(ctx context.Context, id report.ReportID, question string) (FollowUpResult, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return FollowUpResult{}, report.ErrEmptyQuestion
	}
	if !s.beginAsk(id) {
		return FollowUpResult{}, report.ErrFollowUpInFlight
	}
	defer s.endAsk(id)

	r, err := s.History.Get(id)
	if err != nil {
		return FollowUpResult{}, err
	}

	prior := append([]report.ChatMessage(nil), r.ChatHistory...)
	r.AppendTurn(report.ChatMessage{Role: report.RoleUser, Text: q, Timestamp: s.turnTime()})

	var res FollowUpResult
	answer, err := s.Responder.Ask(ctx, report.FollowUpRequest{
		Question: q,
		Content:  r.Content,
		History:  prior,
		Language: r.Language,
	})
	if err != nil {
		s.logger().WithError(err).WithField("report_id", id).Error("follow-up failed")
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		r.AppendTurn(report.ChatMessage{
			Role:      report.RoleModel,
			Text:      MessagesFor(r.Language).FollowUpFailed,
			Timestamp: s.turnTime(),
			Failed:    true,
		})
	} else {
		if strings.TrimSpace(answer) == "" {
			answer = prompt.FallbackAnswer(r.Language)
		}
		res.Outcome = OutcomeAnswered
		res.Answer = answer
		r.AppendTurn(report.ChatMessage{Role: report.RoleModel, Text: answer, Timestamp: s.turnTime()})
	}

	if err := s.History.Update(ctx, r); err != nil {
		return res, fmt.Errorf("save chat: %w", err)
	}
	res.Report = r
	return res, nil
}

// Asking reports whether a follow-up for id is waiting on the model.
func (s *Service) Asking(id report.ReportID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asking[id]
}

// Export renders the HTML document and, when a store is configured,
// uploads it under exports/<id>/<filename>. Upload failures are logged and
// the document is still returned.
func (s *Service) Export(ctx context.Context, id report.ReportID) (Artifact, error) {
	r, err := s.History.Get(id)
	if err != nil {
		return Artifact{}, err
	}

	year := s.Clock.Now().Year()
	var buf bytes.Buffer
	if err := format.RenderHTML(&buf, r, format.HTMLOptions{Year: year}); err != nil {
		return Artifact{}, err
	}
	a := Artifact{
		Filename:    format.ExportFilename(r, year),
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}

	if s.Artifacts != nil {
		url, err := s.Artifacts.Put(ctx, path.Join("exports", id, a.Filename), a.ContentType, a.Body)
		if err != nil {
			s.logger().WithError(err).WithField("report_id", id).Warn("export upload failed")
		} else {
			a.URL = url
		}
	}
	return a, nil
}

func (s *Service) Report(id report.ReportID) (*report.IntelligenceReport, error) {
	return s.History.Get(id)
}

func (s *Service) Reports(page, pageSize int) history.PaginatedResult {
	return s.History.Page(page, pageSize)
}

// Blocks returns the formatted content of a stored report.
func (s *Service) Blocks(id report.ReportID) ([]format.Block, error) {
	r, err := s.History.Get(id)
	if err != nil {
		return nil, err
	}
	return format.Format(r.Content), nil
}

func (s *Service) PlainText(id report.ReportID) (string, error) {
	r, err := s.History.Get(id)
	if err != nil {
		return "", err
	}
	return format.PlainText(r), nil
}

// IsValidation is true for errors caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, report.ErrEmptyCompany) ||
		errors.Is(err, report.ErrEmptyQuestion) ||
		errors.Is(err, report.ErrUnsupportedLanguage)
}

func (s *Service) beginAsk(id report.ReportID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asking == nil {
		s.asking = make(map[report.ReportID]bool)
	}
	if s.asking[id] {
		return false
	}
	s.asking[id] = true
	return true
}

func (s *Service) endAsk(id report.ReportID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.asking, id)
}

// reportPrompt pins the news window to the current year.
func (s *Service) reportPrompt(company string, lang report.Language) string {
	return prompt.BuildReportPrompt(company, lang, s.Clock.Now().Year())
}

func (s *Service) turnTime() string {
	return s.Clock.Now().Format(application.TurnTimestampLayout)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}
