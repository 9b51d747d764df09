// Package claims reads the unverified contents of compact tokens for
// display. Nothing here checks a signature; never base a trust decision on
// a Result.
package claims

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Kind classifies a compact token by its shape.
type Kind string

const (
	// KindSigned is a three-segment JWS whose payload could be read.
	KindSigned Kind = "signed"
	// KindEncrypted is a five-segment JWE; its payload needs a key.
	KindEncrypted Kind = "encrypted"
	// KindUnknown is anything that is neither three nor five segments.
	KindUnknown Kind = "unknown"
	// KindError is a three-segment token whose payload is not base64url JSON.
	KindError Kind = "error"
)

// Result is the outcome of Decode.
type Result struct {
	Kind Kind `json:"kind"`

	// Claims is set for KindSigned only.
	Claims jwt.MapClaims `json:"claims,omitempty"`

	// Header holds the JOSE header when it could be read. For JWE it
	// carries alg and enc only.
	Header map[string]interface{} `json:"header,omitempty"`

	// Err explains a KindError result.
	Err error `json:"-"`
}

var keyAlgorithms = []jose.KeyAlgorithm{
	jose.RSA1_5, jose.RSA_OAEP, jose.RSA_OAEP_256,
	jose.A128KW, jose.A192KW, jose.A256KW,
	jose.DIRECT,
	jose.ECDH_ES, jose.ECDH_ES_A128KW, jose.ECDH_ES_A192KW, jose.ECDH_ES_A256KW,
	jose.A128GCMKW, jose.A192GCMKW, jose.A256GCMKW,
	jose.PBES2_HS256_A128KW, jose.PBES2_HS384_A192KW, jose.PBES2_HS512_A256KW,
}

var contentEncryptions = []jose.ContentEncryption{
	jose.A128CBC_HS256, jose.A192CBC_HS384, jose.A256CBC_HS512,
	jose.A128GCM, jose.A192GCM, jose.A256GCM,
}

// Decode classifies token and, for signed tokens, decodes the payload.
func Decode(token string) Result {
	token = strings.TrimSpace(token)
	parts := strings.Split(token, ".")

	switch len(parts) {
	case 5:
		return Result{Kind: KindEncrypted, Header: encryptedHeader(token)}
	case 3:
		return decodeSigned(parts)
	default:
		return Result{Kind: KindUnknown}
	}
}

func decodeSigned(parts []string) Result {
	parser := jwt.NewParser(jwt.WithPaddingAllowed())

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return Result{Kind: KindError, Err: fmt.Errorf("payload is not base64url: %w", err)}
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Result{Kind: KindError, Err: fmt.Errorf("payload is not a JSON object: %w", err)}
	}

	res := Result{Kind: KindSigned, Claims: claims}

	// The header is informational; a broken one does not spoil the claims.
	if raw, err := parser.DecodeSegment(parts[0]); err == nil {
		var header map[string]interface{}
		if json.Unmarshal(raw, &header) == nil {
			res.Header = header
		}
	}

	return res
}

func encryptedHeader(token string) map[string]interface{} {
	jwe, err := jose.ParseEncrypted(token, keyAlgorithms, contentEncryptions)
	if err != nil {
		return nil
	}

	header := map[string]interface{}{"alg": jwe.Header.Algorithm}
	if enc, ok := jwe.Header.ExtraHeaders[jose.HeaderKey("enc")]; ok {
		header["enc"] = enc
	}
	if jwe.Header.KeyID != "" {
		header["kid"] = jwe.Header.KeyID
	}
	return header
}

// Summary pulls the handful of claims worth showing a human. Missing
// claims are left empty.
type Summary struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	ExpiresAt string
}

// Summarize returns the Summary of a signed result.
func (r Result) Summarize() Summary {
	if r.Kind != KindSigned {
		return Summary{}
	}

	var s Summary
	s.Subject, _ = r.Claims.GetSubject()
	s.Issuer, _ = r.Claims.GetIssuer()
	s.Email, _ = r.Claims["email"].(string)
	s.Name, _ = r.Claims["name"].(string)
	if exp, err := r.Claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.UTC().Format("2006-01-02 15:04:05 MST")
	}
	return s
}
