package report

import "errors"

var (
	// ErrNotFound is returned when no report carries the requested id.
	ErrNotFound = errors.New("report not found")

	ErrEmptyCompany        = errors.New("company name is required")
	ErrEmptyQuestion       = errors.New("question is required")
	ErrUnsupportedLanguage = errors.New("unsupported language (allowed: zh, en)")

	// ErrAnalysisInFlight rejects a submit while a generation is outstanding.
	ErrAnalysisInFlight = errors.New("analysis already in progress")
	// ErrFollowUpInFlight rejects a second question on a report that is still waiting for an answer.
	ErrFollowUpInFlight = errors.New("follow-up already in progress")

	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrMalformedDomainBlock marks a DOMAIN_START...DOMAIN_END block that could not be decoded.
	ErrMalformedDomainBlock = errors.New("malformed domain metadata block")
)
