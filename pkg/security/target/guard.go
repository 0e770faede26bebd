// Package target decides which form URLs the service may automate. Hosts
// are matched against allow and deny lists of glob patterns such as
// "*.example.com".
package target

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrScheme is returned for URLs that are not http or https.
	ErrScheme = errors.New("scheme must be http or https")

	// ErrHostDenied is returned when a host matches a denied pattern.
	ErrHostDenied = errors.New("host is denied")

	// ErrHostNotAllowed is returned when an allow list exists and the host
	// matches none of it.
	ErrHostNotAllowed = errors.New("host is not in the allowed list")
)

// Violation reports a rejected target.
type Violation struct {
	Host    string
	Pattern string
	Err     error
}

func (v *Violation) Error() string {
	if v.Pattern != "" {
		return fmt.Sprintf("%s: %s (matches %q)", v.Err, v.Host, v.Pattern)
	}
	return fmt.Sprintf("%s: %s", v.Err, v.Host)
}

func (v *Violation) Unwrap() error { return v.Err }

type pattern struct {
	source string
	glob   glob.Glob
}

// Guard checks URLs against host patterns. Denied patterns take precedence;
// an empty allow list allows every host that is not denied.
type Guard struct {
	allowed []pattern
	denied  []pattern
}

// NewGuard compiles the patterns. Patterns use '.' as the separator, so
// "*.example.com" matches "www.example.com" but not "a.b.example.com";
// "**.example.com" matches any depth.
func NewGuard(allowed, denied []string) (*Guard, error) {
	g := &Guard{}
	var err error
	if g.allowed, err = compile(allowed); err != nil {
		return nil, fmt.Errorf("invalid allowed pattern: %w", err)
	}
	if g.denied, err = compile(denied); err != nil {
		return nil, fmt.Errorf("invalid denied pattern: %w", err)
	}
	return g, nil
}

func compile(sources []string) ([]pattern, error) {
	patterns := make([]pattern, 0, len(sources))
	for _, src := range sources {
		src = strings.ToLower(strings.TrimSpace(src))
		if src == "" {
			continue
		}
		g, err := glob.Compile(src, '.')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", src, err)
		}
		patterns = append(patterns, pattern{source: src, glob: g})
	}
	return patterns, nil
}

// Check returns a *Violation when u may not be automated. A nil Guard
// allows everything with an http(s) scheme.
func (g *Guard) Check(u *url.URL) error {
	if u == nil {
		return &Violation{Err: ErrScheme}
	}
	host := strings.ToLower(u.Hostname())
	if u.Scheme != "http" && u.Scheme != "https" {
		return &Violation{Host: host, Err: ErrScheme}
	}
	if g == nil {
		return nil
	}

	for _, p := range g.denied {
		if p.glob.Match(host) {
			return &Violation{Host: host, Pattern: p.source, Err: ErrHostDenied}
		}
	}
	if len(g.allowed) == 0 {
		return nil
	}
	for _, p := range g.allowed {
		if p.glob.Match(host) {
			return nil
		}
	}
	return &Violation{Host: host, Err: ErrHostNotAllowed}
}
