package atff

import (
	"context"
	"log/slog"
)

// Resolver is the capability invoked for every link a document carries.
// The codec never fetches or executes anything itself; callers that want
// links acted on supply an implementation (see package link).
type Resolver interface {
	Resolve(ctx context.Context, link string) error
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, link string) error

// Resolve calls f(ctx, link).
func (f ResolverFunc) Resolve(ctx context.Context, link string) error {
	return f(ctx, link)
}

// NopResolver ignores every link. It is the default.
type NopResolver struct{}

// Resolve does nothing.
func (NopResolver) Resolve(context.Context, string) error { return nil }

// Option configures an Encoder or Decoder.
type Option func(*options)

type options struct {
	resolver Resolver
	logger   *slog.Logger
}

// WithResolver sets the link resolver.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithLogger sets the logger used for non-fatal events such as resolver
// failures during encoding.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		resolver: NopResolver{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
