package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

var (
	primary   = lipgloss.Color("#1E3A8A")
	accent    = lipgloss.Color("#2563EB")
	muted     = lipgloss.Color("#64748B")
	userColor = lipgloss.Color("#8BC34A")

	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(primary)
	headingStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary).MarginTop(1)
	subheadingStyle = lipgloss.NewStyle().Bold(true)
	linkStyle       = lipgloss.NewStyle().Foreground(accent).Underline(true)
	labelStyle      = lipgloss.NewStyle().Foreground(muted)
	summaryStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary)
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(userColor)
	modelStyle      = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

// RenderTerminal lays a report out for the CLI. width <= 0 disables wrapping.
func RenderTerminal(r *report.IntelligenceReport, width int) string {
	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(r.CompanyName))
	if r.Website != "" {
		b.WriteString("  " + labelStyle.Render(r.Website))
	}
	b.WriteString("\n" + labelStyle.Render(r.Timestamp) + "\n")

	for _, blk := range Format(r.Content) {
		switch blk.Kind {
		case KindHeading:
			b.WriteString(headingStyle.Render(blk.Text))
		case KindSubheading:
			b.WriteString(subheadingStyle.Render(blk.Text))
		case KindLink:
			if blk.Label != "" {
				b.WriteString("  " + labelStyle.Render(blk.Label) + " ")
			} else {
				b.WriteString("  ")
			}
			b.WriteString(linkStyle.Render(blk.URL))
		case KindSummary:
			b.WriteString(wrap.Render("  " + summaryStyle.Render(blk.Label) + " " + blk.Text))
		case KindItem:
			b.WriteString(wrap.Render("  • " + blk.Text))
		case KindBreak:
		default:
			b.WriteString(wrap.Render(blk.Text))
		}
		b.WriteString("\n")
	}

	if len(r.Sources) > 0 {
		b.WriteString("\n" + headingStyle.Render(labelsFor(r.Language).Sources) + "\n")
		for i, s := range r.Sources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			fmt.Fprintf(&b, "  %d. %s %s\n", i+1, title, linkStyle.Render(s.URI))
		}
	}
	return b.String()
}

// RenderChat prints the follow-up transcript.
func RenderChat(history []report.ChatMessage) string {
	var b strings.Builder
	for _, m := range history {
		style := modelStyle
		if m.Role == report.RoleUser {
			style = userStyle
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", style.Render(string(m.Role)), labelStyle.Render(m.Timestamp), m.Text)
	}
	return b.String()
}

// PlainText is the clipboard form: raw content followed by numbered sources.
func PlainText(r *report.IntelligenceReport) string {
	var b strings.Builder
	b.WriteString(r.Content)
	if len(r.Sources) > 0 {
		b.WriteString("\n\n" + labelsFor(r.Language).Sources + ":\n")
		for i, s := range r.Sources {
			if s.Title != "" {
				fmt.Fprintf(&b, "%d. %s - %s\n", i+1, s.Title, s.URI)
			} else {
				fmt.Fprintf(&b, "%d. %s\n", i+1, s.URI)
			}
		}
	}
	return b.String()
}
