// Package auth implements the OAuth2 Authorization Code + PKCE handshake
// and the durable auth session it produces.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
)

// VerifierAlphabet is the unreserved alphanumeric alphabet code verifiers
// are drawn from.
const VerifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultVerifierLength matches the maximum length RFC 7636 allows.
const DefaultVerifierLength = 128

var alphabetSize = big.NewInt(int64(len(VerifierAlphabet)))

// GenerateVerifier produces a random code verifier of exactly length
// characters, drawn uniformly from VerifierAlphabet.
func GenerateVerifier(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(err)
		}
		buf[i] = VerifierAlphabet[n.Int64()]
	}
	return string(buf)
}

// ChallengeS256 computes the S256 code challenge for a verifier: the
// SHA-256 digest, base64url-encoded with padding stripped.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
