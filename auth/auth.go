// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid vote token format")
)

const voteTokenPrefix = "VT-"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewRowID returns a time-ordered UUID for primary keys of immutable rows
func NewRowID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ValidateAdminKey checks the provided key against the configured one in constant time
func ValidateAdminKey(provided, expected string) error {
	if expected == "" || provided == "" {
		return ErrInvalidAdminKey
	}
	// Compare digests so the comparison time doesn't depend on key length
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	if !hmac.Equal(a[:], b[:]) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVoteToken creates the token correlating all rows of one submission.
// Format: VT-<base36 unix millis>-<base62 random 128 bits>
// The storage layer still enforces uniqueness (encrypted_ballots primary key).
func GenerateVoteToken(now time.Time) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate vote token: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(voteTokenPrefix)
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	sb.WriteByte('-')
	sb.WriteString(padBase62(base62Encode(b[:8])))
	sb.WriteString(padBase62(base62Encode(b[8:])))
	return sb.String(), nil
}

// ParseVoteToken validates the token shape and returns its embedded timestamp
func ParseVoteToken(token string) (time.Time, error) {
	rest, ok := strings.CutPrefix(token, voteTokenPrefix)
	if !ok {
		return time.Time{}, ErrInvalidToken
	}
	ts, random, ok := strings.Cut(rest, "-")
	if !ok || len(random) != 22 {
		return time.Time{}, ErrInvalidToken
	}
	ms, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}
	return time.UnixMilli(ms), nil
}

// BlindVoterID derives the election-scoped identifier stored next to a ballot.
// The HMAC key is itself HMAC(secret, electionID), so the same student maps
// to unrelated values in different elections and nothing is recoverable
// without the server secret.
func BlindVoterID(studentID, electionID, secret string) string {
	k := hmac.New(sha256.New, []byte(secret))
	k.Write([]byte(electionID))
	electionKey := k.Sum(nil)

	h := hmac.New(sha256.New, electionKey)
	h.Write([]byte(studentID))
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveKey returns HMAC(secret, label) as hex. Each use of the server
// secret gets its own label so a value published for one purpose says
// nothing about another.
func DeriveKey(secret, label string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(label))
	return hex.EncodeToString(h.Sum(nil))
}

// VerificationCode is the receipt value a third party can recompute from
// (token, election, student) without holding any key.
// Fields are length-prefixed so ("ab","c") and ("a","bc") never collide.
func VerificationCode(token, electionID, studentID string) string {
	h := sha256.New()
	for _, field := range []string{token, electionID, studentID} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// padBase62 left-pads to the maximum base62 width of a uint64
func padBase62(s string) string {
	const width = 11
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// base62Encode converts bytes to base62 (0-9, a-z, A-Z)
func base62Encode(data []byte) string {
	const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Convert bytes to a big integer
	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	// Convert to base62
	result := make([]byte, 0, 11) // max length for uint64
	for num > 0 {
		result = append(result, base62Chars[num%62])
		num /= 62
	}

	// Reverse the string
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}

// HashIP creates a one-way hash of an IP address so logs never carry raw addresses
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for correlation
	return hex.EncodeToString(sum[:8])
}
