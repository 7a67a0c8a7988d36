package token

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
	"github.com/dmitrijs2005/xcauth/internal/observe"
)

// Verifier checks tokens offline against the shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
	logger logging.Logger
	obs    *observe.Observer
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger sets the logger used for rejection reasons.
func WithLogger(l logging.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithObserver records every check in obs.
func WithObserver(obs *observe.Observer) Option {
	return func(v *Verifier) { v.obs = obs }
}

// NewVerifier returns a Verifier for tokens signed with secret.
func NewVerifier(secret []byte, opts ...Option) *Verifier {
	v := &Verifier{
		secret: secret,
		now:    time.Now,
		logger: logging.Nop(),
		obs:    observe.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check validates candidate as a token for username@domain. It returns nil
// for a valid token, or an error matching one of common.ErrNotAToken,
// ErrTokenLength, ErrTokenVersion, ErrTokenExpired or ErrTokenMAC.
func (v *Verifier) Check(username, domain, candidate string) error {
	raw, err := Decode(candidate)
	if err != nil {
		return err
	}

	t, err := Parse(raw)
	if err != nil {
		return err
	}

	if t.Version != Version0 {
		return fmt.Errorf("%w: %d", common.ErrTokenVersion, t.Version)
	}

	if t.ExpiresAt().Before(v.now()) {
		return fmt.Errorf("%w at %s", common.ErrTokenExpired, t.ExpiresAt().UTC().Format(time.RFC3339))
	}

	want := MAC(v.secret, Challenge(t.Version, t.Header(), JID(username, domain)))
	if !hmac.Equal(t.MAC[:], want) {
		return common.ErrTokenMAC
	}

	return nil
}

// Verify reports whether candidate is a valid token for username@domain.
// Every failure is logged at debug level and reported as false: most
// candidates are plain passwords.
func (v *Verifier) Verify(ctx context.Context, username, domain, candidate string) bool {
	err := v.Check(username, domain, candidate)
	v.obs.RecordTokenCheck(ctx, Outcome(err))
	if err != nil {
		v.logger.Debug(ctx, "not a valid token (maybe a password?)", "jid", JID(username, domain), "reason", err.Error())
		return false
	}
	return true
}

// Outcome names the class of a Check result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, common.ErrNotAToken):
		return "undecodable"
	case errors.Is(err, common.ErrTokenLength):
		return "length"
	case errors.Is(err, common.ErrTokenVersion):
		return "version"
	case errors.Is(err, common.ErrTokenExpired):
		return "expired"
	case errors.Is(err, common.ErrTokenMAC):
		return "mac"
	default:
		return "error"
	}
}
