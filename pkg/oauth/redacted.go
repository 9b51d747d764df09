package oauth

// RedactedToken wraps a credential so that formatting, logging and JSON
// encoding print "[REDACTED]" instead of the value.
//
//	tok := oauth.NewRedactedToken(set.AccessToken)
//	fmt.Println(tok)      // [REDACTED]
//	header := tok.Value() // the credential itself
type RedactedToken struct {
	value string
}

// NewRedactedToken wraps value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the credential. Never log the result.
func (t RedactedToken) Value() string {
	return t.value
}

// Len returns the length of the wrapped value.
func (t RedactedToken) Len() int {
	return len(t.value)
}

// IsEmpty reports whether no credential is wrapped.
func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

func (t RedactedToken) String() string {
	if t.value == "" {
		return ""
	}
	return "[REDACTED]"
}

func (t RedactedToken) GoString() string {
	return "oauth.RedactedToken{[REDACTED]}"
}

func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}
