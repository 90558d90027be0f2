package link

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ErrDenied is returned when a link target is outside the policy.
var ErrDenied = errors.New("link: denied by policy")

// DefaultMaxBytes bounds a fetched link body (1 MiB).
const DefaultMaxBytes = 1 << 20

// Policy restricts which links a Remote resolver acts on.
type Policy struct {
	// AllowedSchemes lists URL schemes that may be fetched.
	// Empty means "https" only.
	AllowedSchemes []string

	// AllowedHosts lists hosts that may be fetched. An entry of the form
	// "*.example.com" matches any subdomain. Empty allows every host.
	AllowedHosts []string

	// Timeout bounds one fetch plus execution. Zero means no limit.
	Timeout time.Duration

	// MaxBytes bounds the fetched body. Zero selects DefaultMaxBytes.
	MaxBytes int64

	// Retries is how many times a failed fetch is retried. Only network
	// errors and 5xx/429 responses are retried.
	Retries int

	// RetryWait is the first backoff interval. Zero selects
	// DefaultRetryWait.
	RetryWait time.Duration
}

// DefaultRetryWait is the initial interval between fetch attempts.
const DefaultRetryWait = 200 * time.Millisecond

// Check parses target and verifies it against the policy.
func (p Policy) Check(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("link: parse %q: %w", target, err)
	}

	schemes := p.AllowedSchemes
	if len(schemes) == 0 {
		schemes = []string{"https"}
	}
	if !slices.Contains(schemes, strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w: scheme %q", ErrDenied, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrDenied, target)
	}
	if !p.hostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("%w: host %q", ErrDenied, u.Hostname())
	}
	return u, nil
}

func (p Policy) hostAllowed(host string) bool {
	if len(p.AllowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range p.AllowedHosts {
		h = strings.ToLower(h)
		if suffix, ok := strings.CutPrefix(h, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == h {
			return true
		}
	}
	return false
}

func (p Policy) retryWait() time.Duration {
	if p.RetryWait <= 0 {
		return DefaultRetryWait
	}
	return p.RetryWait
}

func (p Policy) maxBytes() int64 {
	if p.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return p.MaxBytes
}
