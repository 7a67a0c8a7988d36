// Package token implements the compact HMAC tokens issued by the cloud in
// lieu of passwords.
//
// Binary layout, 23 bytes:
//
//	version:u8 | mac:16 | secretID:u16be | expiry:u32be
//
// mac is the first 16 bytes of HMAC-SHA256(secret, version‖header‖jid),
// where header is secretID‖expiry. The bytes are transported as unpadded
// standard base64 in which '-', '$' and '%' stand for 'O', 'I' and 'l', so
// tokens survive user-facing input fields.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/common"
)

const (
	// MACSize is the truncated HMAC-SHA256 width.
	MACSize = 16
	// HeaderSize covers secretID (2 bytes) and expiry (4 bytes).
	HeaderSize = 6
	// Size is the decoded token length. It moves in lockstep with MACSize
	// and HeaderSize.
	Size = 1 + MACSize + HeaderSize

	// Version0 is the only supported token version.
	Version0 byte = 0
)

var (
	userSafe = strings.NewReplacer("O", "-", "I", "$", "l", "%")
	standard = strings.NewReplacer("-", "O", "$", "I", "%", "l")
)

// Token is a decoded token.
type Token struct {
	Version  byte
	MAC      [MACSize]byte
	SecretID uint16
	Expiry   uint32
}

// Header returns secretID‖expiry, big-endian.
func (t Token) Header() []byte {
	h := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(h[0:2], t.SecretID)
	binary.BigEndian.PutUint32(h[2:6], t.Expiry)
	return h
}

// ExpiresAt returns the expiry as a time.
func (t Token) ExpiresAt() time.Time {
	return time.Unix(int64(t.Expiry), 0)
}

// Bytes returns the 23-byte wire form.
func (t Token) Bytes() []byte {
	b := make([]byte, 0, Size)
	b = append(b, t.Version)
	b = append(b, t.MAC[:]...)
	return append(b, t.Header()...)
}

// Parse splits raw into its fields. raw must be exactly Size bytes.
func Parse(raw []byte) (Token, error) {
	if len(raw) != Size {
		return Token{}, fmt.Errorf("%w: %d != %d", common.ErrTokenLength, len(raw), Size)
	}

	var t Token
	t.Version = raw[0]
	copy(t.MAC[:], raw[1:1+MACSize])
	header := raw[1+MACSize:]
	t.SecretID = binary.BigEndian.Uint16(header[0:2])
	t.Expiry = binary.BigEndian.Uint32(header[2:6])
	return t, nil
}

// Decode reverses the user-safe substitution and decodes the base64 text.
// Trailing padding is optional.
func Decode(s string) ([]byte, error) {
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(standard.Replace(s), "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNotAToken, err)
	}
	return raw, nil
}

// Encode is the inverse of Decode.
func Encode(raw []byte) string {
	return userSafe.Replace(base64.RawStdEncoding.EncodeToString(raw))
}

// Challenge builds the HMAC input version‖header‖jid.
func Challenge(version byte, header []byte, jid string) []byte {
	c := make([]byte, 0, 1+len(header)+len(jid))
	c = append(c, version)
	c = append(c, header...)
	return append(c, jid...)
}

// MAC returns the truncated HMAC-SHA256 of challenge.
func MAC(secret, challenge []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(challenge)
	return h.Sum(nil)[:MACSize]
}

// Issue mints an encoded version 0 token for jid.
func Issue(secret []byte, jid string, secretID uint16, expiry time.Time) string {
	t := Token{Version: Version0, SecretID: secretID, Expiry: uint32(expiry.Unix())}
	copy(t.MAC[:], MAC(secret, Challenge(t.Version, t.Header(), jid)))
	return Encode(t.Bytes())
}

// JID joins username and domain.
func JID(username, domain string) string {
	return username + "@" + domain
}
