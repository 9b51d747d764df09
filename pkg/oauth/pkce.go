package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// pkceVerifierBytes is the amount of randomness behind a code verifier.
	// 32 bytes encode to a 43 character verifier, the RFC 7636 minimum.
	pkceVerifierBytes = 32

	// stateBytes is the amount of randomness behind a state or nonce value.
	stateBytes = 32

	// ChallengeMethodS256 is the only code challenge method this module sends.
	ChallengeMethodS256 = "S256"
)

// PKCEChallenge holds the verifier/challenge pair of one authorization attempt.
type PKCEChallenge struct {
	// CodeVerifier stays in process memory and is only sent to the token endpoint.
	CodeVerifier string

	// CodeChallenge is sent to the authorization endpoint.
	CodeChallenge string

	// CodeChallengeMethod is always S256.
	CodeChallengeMethod string
}

// GeneratePKCE returns a fresh S256 verifier/challenge pair.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, challenge, err := GeneratePKCERaw()
	if err != nil {
		return nil, err
	}

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: ChallengeMethodS256,
	}, nil
}

// GeneratePKCERaw returns the verifier and its S256 challenge as plain strings.
func GeneratePKCERaw() (verifier, challenge string, err error) {
	verifier, err = randomToken(pkceVerifierBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	return verifier, ChallengeFromVerifier(verifier), nil
}

// ChallengeFromVerifier computes base64url(SHA256(verifier)) without padding.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns an anti-CSRF state value, independent of any verifier.
func GenerateState() (string, error) {
	state, err := randomToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return state, nil
}

// GenerateNonce returns a single-use random value. The callback server uses
// it as the CSP script nonce of rendered pages.
func GenerateNonce() (string, error) {
	nonce, err := randomToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
