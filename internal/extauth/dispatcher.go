// Package extauth answers external-authentication requests: it reads
// requests from a protocol adapter, decides them with the token verifier
// and the cloud, and writes the answer back through the same adapter.
package extauth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
	"github.com/dmitrijs2005/xcauth/internal/observe"
	"github.com/dmitrijs2005/xcauth/internal/protocol"
	"go.opentelemetry.io/otel/attribute"
)

// TokenChecker validates offline tokens.
type TokenChecker interface {
	Verify(ctx context.Context, username, domain, candidate string) bool
}

// CloudChecker asks the cloud endpoint.
type CloudChecker interface {
	VerifyPassword(ctx context.Context, username, domain, password string) bool
	IsUser(ctx context.Context, username, domain string) bool
}

// Dispatcher decides requests. It holds no per-request state.
type Dispatcher struct {
	tokens TokenChecker
	cloud  CloudChecker
	logger logging.Logger
	obs    *observe.Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver records every request in obs.
func WithObserver(obs *observe.Observer) Option {
	return func(d *Dispatcher) { d.obs = obs }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(tokens TokenChecker, cloud CloudChecker, logger logging.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{tokens: tokens, cloud: cloud, logger: logger, obs: observe.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Auth checks the credential first as a token, then with the cloud.
// The cloud is not contacted when the token is valid.
func (d *Dispatcher) Auth(ctx context.Context, username, domain, password string) bool {
	if d.tokens.Verify(ctx, username, domain, password) {
		d.logger.Info(ctx, fmt.Sprintf("SUCCESS: Token for %s@%s is valid", username, domain))
		return true
	}

	if d.cloud.VerifyPassword(ctx, username, domain, password) {
		d.logger.Info(ctx, fmt.Sprintf("SUCCESS: Cloud says password for %s@%s is valid", username, domain))
		return true
	}

	d.logger.Info(ctx, fmt.Sprintf("FAILURE: Neither token nor cloud approves user %s@%s", username, domain))
	return false
}

// IsUser asks the cloud whether the user exists.
func (d *Dispatcher) IsUser(ctx context.Context, username, domain string) bool {
	if d.cloud.IsUser(ctx, username, domain) {
		d.logger.Info(ctx, fmt.Sprintf("Cloud says user %s@%s exists", username, domain))
		return true
	}
	return false
}

// Handle decides one request. Unknown operations and wrong argument counts
// are denied without consulting either checker.
func (d *Dispatcher) Handle(ctx context.Context, req protocol.Request) bool {
	d.logger.Debug(ctx, "receive operation "+req.Op)

	ctx, span := d.obs.StartSpan(ctx, "extauth."+req.Op, attribute.Int("xcauth.args", len(req.Args)))

	granted := false
	switch {
	case req.Op == common.OperationAuth && len(req.Args) == 3:
		granted = d.Auth(ctx, req.Args[0], req.Args[1], req.Args[2])
	case req.Op == common.OperationIsUser && len(req.Args) == 2:
		granted = d.IsUser(ctx, req.Args[0], req.Args[1])
	default:
		d.logger.Debug(ctx, "unsupported request", "operation", req.Op, "args", len(req.Args))
	}

	observe.EndSpan(span, granted, nil)
	d.obs.RecordRequest(ctx, req.Op, granted)
	return granted
}

// Serve answers requests from a until the stream ends. It returns nil when
// the stream ended cleanly or ctx was cancelled, and the framing or write
// error otherwise. A request read after cancellation is left unanswered.
func (d *Dispatcher) Serve(ctx context.Context, a protocol.Adapter) error {
	for req, err := range protocol.Requests(a) {
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		if err := ctx.Err(); err != nil {
			d.logger.Info(ctx, "session cancelled", "reason", err.Error())
			return nil
		}

		if err := a.Write(d.Handle(ctx, req)); err != nil {
			return fmt.Errorf("write answer: %w", err)
		}
	}
	return nil
}
