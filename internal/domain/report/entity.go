package report

import (
	"strings"
)

// ReportID identifies an IntelligenceReport across the history store.
type ReportID = string

// Language enum
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// DefaultLanguage is used when the caller does not pick one.
const DefaultLanguage = LanguageZH

// ParseLanguage accepts "zh" or "en" in any case; empty means DefaultLanguage.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultLanguage, nil
	case LanguageZH:
		return LanguageZH, nil
	case LanguageEN:
		return LanguageEN, nil
	default:
		return "", ErrUnsupportedLanguage
	}
}

// Role enum for chat turns
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// GroundingSource is a web citation returned by a search-grounded response.
type GroundingSource struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

// ChatMessage is one turn of a follow-up conversation.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	// Failed marks the model turn recorded when a follow-up call errored.
	Failed bool `json:"failed,omitempty"`
}

// Aggregate Root: IntelligenceReport
type IntelligenceReport struct {
	ID          ReportID          `json:"id"`
	Content     string            `json:"content"`
	Sources     []GroundingSource `json:"sources"`
	CompanyName string            `json:"companyName"`
	Timestamp   string            `json:"timestamp"`
	Website     string            `json:"website,omitempty"`
	LogoURL     string            `json:"logoUrl,omitempty"`
	Language    Language          `json:"language"`
	ChatHistory []ChatMessage     `json:"chatHistory,omitempty"`
}

// AppendTurn is the only way chat history grows.
func (r *IntelligenceReport) AppendTurn(m ChatMessage) {
	r.ChatHistory = append(r.ChatHistory, m)
}

// Clone returns a deep copy so callers never share backing arrays.
func (r *IntelligenceReport) Clone() *IntelligenceReport {
	if r == nil {
		return nil
	}
	c := *r
	if r.Sources != nil {
		c.Sources = append([]GroundingSource(nil), r.Sources...)
	}
	if r.ChatHistory != nil {
		c.ChatHistory = append([]ChatMessage(nil), r.ChatHistory...)
	}
	return &c
}

// Chunk mirrors one grounding chunk of the AI response. Web is nil for
// chunks that do not reference a web page.
type Chunk struct {
	Web *WebRef
}

// WebRef is the web part of a grounding chunk.
type WebRef struct {
	URI   string
	Title string
}

// RawResponse is what the generation backend hands back before parsing.
type RawResponse struct {
	Text   string
	Chunks []Chunk
}

// FollowUpRequest carries everything the follow-up backend needs for one turn.
type FollowUpRequest struct {
	Question string
	Content  string
	History  []ChatMessage
	Language Language
}
