package slug

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type options struct {
	maxLength int
	separator string
	lowercase bool
	suffixLen int
}

// Option configures slug generation.
type Option func(*options)

// MaxLength limits the slug to n runes, excluding any random suffix.
func MaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// Separator sets the string used between words. Default is "-".
func Separator(s string) Option {
	return func(o *options) {
		if s != "" {
			o.separator = s
		}
	}
}

// Lowercase controls case conversion. Default is true.
func Lowercase(enabled bool) Option {
	return func(o *options) {
		o.lowercase = enabled
	}
}

// WithSuffix appends a random alphanumeric suffix of n characters, separated
// by the configured separator. Useful for collision resistance in object
// keys.
func WithSuffix(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.suffixLen = n
		}
	}
}

// Make converts s into a slug. Diacritics are normalized to ASCII, runs of
// non-alphanumeric characters become a single separator, and leading/trailing
// separators are trimmed. An empty input (or input with no usable characters)
// yields an empty slug unless a suffix is requested.
func Make(s string, opts ...Option) string {
	o := options{
		separator: "-",
		lowercase: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s = foldDiacritics(s)
	if o.lowercase {
		s = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteString(o.separator)
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}

	out := b.String()
	if o.maxLength > 0 {
		out = truncate(out, o.maxLength, o.separator)
	}

	if o.suffixLen > 0 {
		suffix := randomSuffix(o.suffixLen)
		if out == "" {
			return suffix
		}
		return out + o.separator + suffix
	}
	return out
}

// foldDiacritics strips combining marks after canonical decomposition, so
// "Café" becomes "Cafe". Characters outside the Latin range that do not
// decompose remain and are later dropped by the alphanumeric filter.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, maxRunes int, separator string) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return strings.TrimSuffix(string(r[:maxRunes]), separator)
}

func randomSuffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	alphabetLen := big.NewInt(int64(len(suffixAlphabet)))
	for range n {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand failures are not recoverable here; fall back to a
			// fixed character rather than panic inside key generation.
			b.WriteByte('0')
			continue
		}
		b.WriteByte(suffixAlphabet[idx.Int64()])
	}
	return b.String()
}
