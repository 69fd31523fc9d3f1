package middleware

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/history"
)

// Input validation and sanitization utilities

const MaxCompanyNameLength = 200

// ErrInvalidInput marks request values rejected before reaching the service.
var ErrInvalidInput = errors.New("invalid input")

var rxReportID = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// ValidateCompanyName sanitizes the name and enforces length.
func ValidateCompanyName(name string) (string, error) {
	name = SanitizeString(name)
	if name == "" {
		return "", report.ErrEmptyCompany
	}
	if utf8.RuneCountInString(name) > MaxCompanyNameLength {
		return "", fmt.Errorf("%w: company name longer than %d characters", ErrInvalidInput, MaxCompanyNameLength)
	}
	return name, nil
}

// ValidateReportID validates report ID format
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: report ID cannot be empty", ErrInvalidInput)
	}
	if !rxReportID.MatchString(id) {
		return fmt.Errorf("%w: invalid report ID format", ErrInvalidInput)
	}
	return nil
}

// ValidatePage parses page and page_size query values. Missing or bad values
// fall back to the first page and the default size.
func ValidatePage(pageStr, sizeStr string) (page, size int) {
	page, _ = strconv.Atoi(pageStr)
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(sizeStr)
	if size <= 0 {
		size = history.DefaultPageSize
	}
	if size > history.MaxPageSize {
		size = history.MaxPageSize
	}
	return page, size
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
