package format

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

// HTMLOptions controls the exported document.
type HTMLOptions struct {
	// Year goes into the footer copyright.
	Year int
}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("div", "p", "ul", "li", "span", "section")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnFullyQualifiedLinks(true)
	return p
}

// RenderHTML writes a standalone styled document: header, formatted body,
// source list and footer. Model-produced text goes through the sanitiser
// before it is embedded.
func RenderHTML(w io.Writer, r *report.IntelligenceReport, opts HTMLOptions) error {
	var body bytes.Buffer
	if err := fragmentTpl.Execute(&body, fragmentData{
		Blocks:  Format(r.Content),
		Sources: r.Sources,
		Labels:  labelsFor(r.Language),
	}); err != nil {
		return fmt.Errorf("render body: %w", err)
	}

	lbl := labelsFor(r.Language)
	data := pageData{
		Lang:     htmlLang(r.Language),
		Title:    r.CompanyName + " - " + lbl.Title,
		Company:  r.CompanyName,
		Website:  r.Website,
		Banner:   "Confidential Market Intelligence Report - " + r.Timestamp,
		Body:     template.HTML(policy.Sanitize(body.String())),
		Footer:   fmt.Sprintf("© %d %s", opts.Year, lbl.System),
		HasLogo:  r.LogoURL != "",
		LogoHTML: template.HTML(policy.Sanitize(fmt.Sprintf(`<img src="%s" alt="">`, template.HTMLEscapeString(r.LogoURL)))),
	}
	if err := pageTpl.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// ExportFilename is "<Company>_Intelligence_Report_<year>.html" with spaces
// turned into underscores and path-unsafe characters dropped.
func ExportFilename(r *report.IntelligenceReport, year int) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(r.CompanyName) {
		switch {
		case unicode.IsSpace(c):
			b.WriteRune('_')
		case unicode.IsLetter(c), unicode.IsDigit(c), c == '-', c == '_', c == '.':
			b.WriteRune(c)
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "Company"
	}
	return fmt.Sprintf("%s_Intelligence_Report_%d.html", name, year)
}

type labels struct {
	Title   string
	Sources string
	System  string
}

func labelsFor(lang report.Language) labels {
	if lang == report.LanguageEN {
		return labels{Title: "Intelligence Report", Sources: "Sources", System: "Global Market Intelligence System"}
	}
	return labels{Title: "情报报告", Sources: "参考来源", System: "全球市场情报分析系统"}
}

func htmlLang(lang report.Language) string {
	if lang == report.LanguageEN {
		return "en"
	}
	return "zh-CN"
}

type fragmentData struct {
	Blocks  []Block
	Sources []report.GroundingSource
	Labels  labels
}

type pageData struct {
	Lang     string
	Title    string
	Company  string
	Website  string
	Banner   string
	Body     template.HTML
	Footer   string
	HasLogo  bool
	LogoHTML template.HTML
}

var funcs = template.FuncMap{"isWebURL": IsWebURL}

var fragmentTpl = template.Must(template.New("fragment").Funcs(funcs).Parse(`<section class="report">
{{- range .Blocks}}
{{- if eq .Kind "heading"}}
<h3>{{.Text}}</h3>
{{- else if eq .Kind "subheading"}}
<h4>{{.Text}}</h4>
{{- else if eq .Kind "link"}}
<p class="link">{{if .Label}}<span class="label">{{.Label}}</span> {{end}}{{if isWebURL .URL}}<a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.URL}}</a>{{else}}{{.URL}}{{end}}</p>
{{- else if eq .Kind "summary"}}
<p class="summary"><strong>{{.Label}}</strong> {{.Text}}</p>
{{- else if eq .Kind "item"}}
<ul><li>{{.Text}}</li></ul>
{{- else if eq .Kind "break"}}
<div class="break"></div>
{{- else}}
<p>{{.Text}}</p>
{{- end}}
{{- end}}
</section>
{{- if .Sources}}
<section class="sources">
<h3>{{.Labels.Sources}}</h3>
<ol>
{{- range .Sources}}
<li>{{if isWebURL .URI}}<a href="{{.URI}}" target="_blank" rel="noopener noreferrer">{{if .Title}}{{.Title}}{{else}}{{.URI}}{{end}}</a>{{else}}{{.URI}}{{end}}</li>
{{- end}}
</ol>
</section>
{{- end}}`))

var pageTpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --primary-color: #1e3a8a;
            --bg-color: #f8fafc;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, "PingFang SC", sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.7;
            margin: 0;
            padding: 24px;
        }
        .container { max-width: 900px; margin: 0 auto; background: #fff; padding: 40px; border-radius: 12px; border: 1px solid var(--border-color); }
        .banner { font-size: 0.75rem; letter-spacing: 0.1em; text-transform: uppercase; color: var(--text-secondary); border-bottom: 1px solid var(--border-color); padding-bottom: 12px; }
        header { display: flex; align-items: center; gap: 16px; margin: 24px 0; }
        header img { width: 56px; height: 56px; object-fit: contain; border-radius: 8px; border: 1px solid var(--border-color); }
        h1 { font-size: 2rem; margin: 0; }
        .website { color: var(--text-secondary); }
        h3 { color: var(--primary-color); border-left: 4px solid var(--primary-color); padding-left: 10px; margin-top: 32px; }
        h4 { margin: 20px 0 6px; }
        ul { margin: 4px 0; padding-left: 20px; }
        .link a { color: #2563eb; word-break: break-all; }
        .label { color: var(--text-secondary); }
        .summary strong { color: var(--primary-color); }
        .break { height: 8px; }
        .sources ol { font-size: 0.9rem; word-break: break-all; }
        footer { text-align: center; margin-top: 40px; color: var(--text-secondary); font-size: 0.8rem; }
    </style>
</head>
<body>
<div class="container">
    <div class="banner">{{.Banner}}</div>
    <header>
        {{if .HasLogo}}{{.LogoHTML}}{{end}}
        <div>
            <h1>{{.Company}}</h1>
            {{if .Website}}<div class="website">{{.Website}}</div>{{end}}
        </div>
    </header>
    {{.Body}}
    <footer>{{.Footer}}</footer>
</div>
</body>
</html>
`))
