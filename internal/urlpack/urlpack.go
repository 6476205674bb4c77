// Package urlpack turns transport payloads into shareable links and back.
package urlpack

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const (
	// DefaultThreshold is the link length past which some browsers and
	// messaging apps truncate or refuse links.
	DefaultThreshold = 2000
	// QueryParam names the query value carrying the payload.
	QueryParam = "fiche"
	// ScanPath is appended to the base URL to reach the scan page.
	ScanPath = "/scan"
)

// ErrInvalidBase indicates a base URL or location that is not absolute.
var ErrInvalidBase = errors.New("base url must be an absolute http(s) url")

// ErrNoPayload indicates a link without a fiche query value.
var ErrNoPayload = errors.New("link carries no fiche payload")

var (
	toSafe   = strings.NewReplacer("+", "-", "/", "_", "=", "")
	fromSafe = strings.NewReplacer("-", "+", "_", "/")
)

// SizeWarning is the advisory attached to links longer than the threshold.
// It never prevents the link from being produced.
type SizeWarning struct {
	Length    int
	Threshold int
}

func (w *SizeWarning) Error() string {
	return fmt.Sprintf("link is %d characters long, above the %d characters some browsers and apps accept", w.Length, w.Threshold)
}

// Link is a packaged shareable URL.
type Link struct {
	URL     string       `json:"url"`
	Length  int          `json:"length"`
	Warning *SizeWarning `json:"-"`
}

// Packager builds shareable links.
type Packager struct {
	threshold int
	logger    *slog.Logger
}

// New constructs a packager warning past threshold characters. A
// non-positive threshold selects DefaultThreshold.
func New(threshold int, logger *slog.Logger) *Packager {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{threshold: threshold, logger: logger}
}

// Threshold returns the warning length.
func (p *Packager) Threshold() int {
	return p.threshold
}

// ToURL wraps payload into <base>/scan?fiche=<payload>. The payload is made
// URL safe and percent-encoded.
func (p *Packager) ToURL(payload, base string) (Link, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if err := checkBase(base); err != nil {
		return Link{}, err
	}

	link := Link{URL: base + ScanPath + "?" + QueryParam + "=" + url.QueryEscape(Substitute(payload))}
	link.Length = len(link.URL)

	if link.Length > p.threshold {
		link.Warning = &SizeWarning{Length: link.Length, Threshold: p.threshold}
		p.logger.Warn("shareable link exceeds recommended length",
			"length", link.Length,
			"threshold", p.threshold,
		)
	}
	return link, nil
}

// Substitute replaces '+' with '-', '/' with '_' and drops '=' padding.
func Substitute(payload string) string {
	return toSafe.Replace(payload)
}

// FromURL reverses Substitute on an already percent-decoded query value,
// restoring the base64 padding Substitute dropped.
func FromURL(value string) string {
	restored := fromSafe.Replace(value)
	if rem := len(restored) % 4; rem != 0 {
		restored += strings.Repeat("=", 4-rem)
	}
	return restored
}

// PayloadFromLink extracts the payload from a full shared link. The query
// parser percent-decodes the value before FromURL is applied.
func PayloadFromLink(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	value := u.Query().Get(QueryParam)
	if strings.TrimSpace(value) == "" {
		return "", ErrNoPayload
	}
	return FromURL(value), nil
}

// BaseFromLocation derives the base URL from the location of the page
// producing the link: its origin followed by its directory, kept escaped.
func BaseFromLocation(location string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBase, location)
	}

	dir := u.EscapedPath()
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	} else {
		dir = ""
	}
	return u.Scheme + "://" + u.Host + dir, nil
}

func checkBase(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBase, base)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w: %q must not carry a query or fragment", ErrInvalidBase, base)
	}
	return nil
}
