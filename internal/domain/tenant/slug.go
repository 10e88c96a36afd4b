package tenant

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Límites del identificador público de la organización.
const (
	SlugMinLen = 3
	SlugMaxLen = 50
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidSlug informa si s cumple ^[a-z0-9-]{3,50}$.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// DeriveSlug genera el slug a partir del nombre de la empresa:
// quita tildes, pasa a minúsculas y colapsa todo lo no alfanumérico en "-".
// "Finca Sur" → "finca-sur", "Café Ñuñoa" → "cafe-nunoa".
func DeriveSlug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	s := nonSlugChars.ReplaceAllString(strings.ToLower(plain), "-")
	s = truncate(strings.Trim(s, "-"), SlugMaxLen)
	switch {
	case s == "":
		return "org"
	case len(s) < SlugMinLen:
		return s + "-org"
	}
	return s
}

// WithSuffix agrega el sufijo numérico de colisión ("finca-sur-2") sin pasar de SlugMaxLen.
func WithSuffix(base string, n int) string {
	if n <= 0 {
		return base
	}
	suffix := "-" + strconv.Itoa(n)
	return truncate(base, SlugMaxLen-len(suffix)) + suffix
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimRight(s[:max], "-")
}
