// Package common contains shared constants and sentinel errors used across
// xcauth components.
package common

// SignatureHeaderName is the HTTP header carrying the HMAC-SHA1 signature
// of every request body sent to the cloud endpoint.
const SignatureHeaderName = "X-JSXC-SIGNATURE"

// Operation tags understood on both wire protocols and by the cloud API.
const (
	OperationAuth   = "auth"
	OperationIsUser = "isuser"
)
