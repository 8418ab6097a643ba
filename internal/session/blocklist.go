// File: internal/session/blocklist.go
package session

import (
	"fmt"
	"net/url"
	"strings"
)

// BlockedNavigationError reports an attempt to navigate to a denied domain.
// It is fatal: the loop aborts rather than feeding it back to the model.
type BlockedNavigationError struct {
	URL    string
	Domain string
}

func (e *BlockedNavigationError) Error() string {
	return fmt.Sprintf("navigation to %q blocked by domain rule %q", e.URL, e.Domain)
}

// Blocklist is a set of hostnames the agent must never visit. A rule
// matches the hostname itself and every subdomain of it.
type Blocklist struct {
	domains []string
}

func NewBlocklist(domains []string) *Blocklist {
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, ".")
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return &Blocklist{domains: cleaned}
}

// Check returns a BlockedNavigationError when rawURL's hostname matches a
// rule. Unparseable URLs pass; the browser will fail them on its own.
func (b *Blocklist) Check(rawURL string) error {
	if len(b.domains) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}
	for _, d := range b.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return &BlockedNavigationError{URL: rawURL, Domain: d}
		}
	}
	return nil
}
