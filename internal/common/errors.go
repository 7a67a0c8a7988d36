// Package common defines shared constants and sentinel errors used by the
// token, cloud, protocol and configuration layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Token decode errors. All of them mean "treat the credential as a password".
	ErrNotAToken    = errors.New("not a token")
	ErrTokenLength  = errors.New("invalid token length")
	ErrTokenVersion = errors.New("unsupported token version")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenMAC     = errors.New("token mac mismatch")

	// Framing errors. Fatal to the protocol session.
	ErrShortFrame = errors.New("premature end of frame")
	ErrBadLength  = errors.New("invalid frame length")

	// Cloud errors. Collapsed to a negative answer by the callers.
	ErrCloudTransport = errors.New("cloud request failed")
	ErrCloudStatus    = errors.New("unexpected cloud response status")
	ErrCloudDecode    = errors.New("malformed cloud response")

	// Configuration errors. Prevent the dispatcher from starting.
	ErrMissingURL        = errors.New("cloud url is required")
	ErrMissingSecret     = errors.New("shared secret is required")
	ErrMissingMode       = errors.New("one of --type, --auth-test, --isuser-test or --issue-token is required")
	ErrUnknownServerType = errors.New("unknown server type")
)
