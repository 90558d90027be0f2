// Package link resolves the remote code references carried by ATFF
// documents.
//
// Resolution is a capability the caller opts into. The codec calls an
// atff.Resolver; this package provides:
//   - Disabled: logs each link and does nothing (the CLI default)
//   - Remote: checks a Policy, fetches the link and hands the bytes to an
//     Executor, which runs them outside the host process
package link

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Neumenon/atff/atff"
)

var (
	_ atff.Resolver = Disabled{}
	_ atff.Resolver = (*Remote)(nil)
)

// Target returns the URL a link names. Links are either "@<url>" or a
// bare http:// or https:// URL; anything else is not a link target.
func Target(link string) (string, bool) {
	s := strings.TrimSpace(link)
	switch {
	case strings.HasPrefix(s, "@"):
		u := strings.TrimSpace(s[1:])
		return u, u != ""
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s, true
	default:
		return "", false
	}
}

// Disabled is a resolver that only records that a link was seen.
type Disabled struct {
	Logger *slog.Logger
}

// Resolve logs the link and returns nil.
func (d Disabled) Resolve(ctx context.Context, link string) error {
	if d.Logger != nil {
		d.Logger.DebugContext(ctx, "link resolution disabled", "link", link)
	}
	return nil
}
