package config

const redacted = "[REDACTED]"

// Secret holds credential material. Every formatting path (fmt verbs, zap
// fields, JSON) renders it as [REDACTED]; only Reveal returns the value.
type Secret string

func (Secret) String() string { return redacted }

func (Secret) GoString() string { return redacted }

func (Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (s Secret) Reveal() string { return string(s) }

func (s Secret) IsZero() bool { return s == "" }
