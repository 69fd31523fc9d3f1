package report

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	domainStartMarker = "DOMAIN_START"
	logoServiceURL    = "https://logo.clearbit.com/"
)

var rxDomainBlock = regexp.MustCompile(`(?s)DOMAIN_START(.*?)DOMAIN_END`)

// DomainExtraction is the outcome of ExtractDomain. Err is informational only:
// when it is set, Content is the untouched input and Domain is empty.
type DomainExtraction struct {
	Content string
	Domain  string
	Err     error
}

// ExtractDomain finds the leading DOMAIN_START{"domain": "..."}DOMAIN_END block,
// returns the domain and the content with the whole block removed.
// A missing block is not an error; a broken one is reported through Err.
func ExtractDomain(raw string) DomainExtraction {
	loc := rxDomainBlock.FindStringSubmatchIndex(raw)
	if loc == nil {
		if strings.Contains(raw, domainStartMarker) {
			return DomainExtraction{Content: raw, Err: ErrMalformedDomainBlock}
		}
		return DomainExtraction{Content: raw}
	}

	var meta struct {
		Domain string `json:"domain"`
	}
	body := strings.TrimSpace(raw[loc[2]:loc[3]])
	if err := json.Unmarshal([]byte(body), &meta); err != nil {
		return DomainExtraction{Content: raw, Err: ErrMalformedDomainBlock}
	}

	cleaned := raw[:loc[0]] + raw[loc[1]:]
	return DomainExtraction{
		Content: strings.TrimSpace(cleaned),
		Domain:  NormalizeDomain(meta.Domain),
	}
}

// NormalizeDomain reduces "https://www.Acme.com/about" to "acme.com".
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimPrefix(d, "www.")
}

// LogoURL points at the third-party logo service; empty domain gives "".
func LogoURL(domain string) string {
	if domain == "" {
		return ""
	}
	return logoServiceURL + domain
}

// FilterSources keeps web chunks with a non-empty URI, in response order.
func FilterSources(chunks []Chunk) []GroundingSource {
	out := make([]GroundingSource, 0, len(chunks))
	for _, c := range chunks {
		if c.Web == nil || c.Web.URI == "" {
			continue
		}
		out = append(out, GroundingSource{Title: c.Web.Title, URI: c.Web.URI})
	}
	return out
}
