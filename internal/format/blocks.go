// Package format turns report markdown into typed blocks and renders them
// for the browser export, the terminal and the clipboard.
package format

import (
	"strings"
)

// Kind enum
type Kind string

const (
	KindHeading    Kind = "heading"
	KindSubheading Kind = "subheading"
	KindLink       Kind = "link"
	KindSummary    Kind = "summary"
	KindItem       Kind = "item"
	KindBreak      Kind = "break"
	KindParagraph  Kind = "paragraph"
)

// Block is one rendered line of report content.
type Block struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text,omitempty"`
	Label string `json:"label,omitempty"`
	URL   string `json:"url,omitempty"`
}

var (
	linkLabels    = []string{"原文链接：", "Original Link:"}
	summaryLabels = []string{"核心摘要：", "Core Summary:"}
)

// Format is a pure line-by-line transform of raw report text.
func Format(content string) []Block {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, formatLine(line))
	}
	return blocks
}

func formatLine(line string) Block {
	switch {
	case strings.HasPrefix(line, "### "):
		return Block{Kind: KindHeading, Text: strings.TrimPrefix(line, "### ")}
	case strings.HasPrefix(line, "#### "):
		return Block{Kind: KindSubheading, Text: strings.TrimPrefix(line, "#### ")}
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "- ") {
		rest := strings.TrimPrefix(trimmed, "- ")
		if label, url, ok := ExtractLink(rest); ok {
			return Block{Kind: KindLink, Label: label, URL: url}
		}
		for _, l := range summaryLabels {
			if i := strings.Index(rest, l); i >= 0 {
				return Block{Kind: KindSummary, Label: l, Text: strings.TrimSpace(rest[i+len(l):])}
			}
		}
		return Block{Kind: KindItem, Text: rest}
	}
	if trimmed == "" {
		return Block{Kind: KindBreak}
	}
	return Block{Kind: KindParagraph, Text: line}
}

// ExtractLink recognises "原文链接：<url>", "Original Link: <url>" and bare
// "http..." bullet bodies. label is empty for the bare form.
func ExtractLink(rest string) (label, url string, ok bool) {
	for _, l := range linkLabels {
		if i := strings.Index(rest, l); i >= 0 {
			return l, strings.TrimSpace(rest[i+len(l):]), true
		}
	}
	if strings.HasPrefix(rest, "http") {
		return "", strings.TrimSpace(rest), true
	}
	return "", "", false
}

// IsWebURL is true for http(s) URLs, the only ones rendered as anchors.
func IsWebURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
