// Package i18n resolves dotted section.key lookups against static
// per-language translation tables, with an english fallback chain, and owns
// the persisted language preference.
package i18n

// Language is one of the recognized display languages.
type Language string

const (
	English  Language = "english"
	Setswana Language = "setswana"
)

// DefaultLanguage is used whenever no valid preference is available.
const DefaultLanguage = English

// Languages lists every recognized language.
func Languages() []Language {
	return []Language{English, Setswana}
}

// ParseLanguage validates a stored or submitted language value. Anything
// other than the two recognized values is reported invalid; callers default
// to DefaultLanguage.
func ParseLanguage(value string) (Language, bool) {
	switch Language(value) {
	case English:
		return English, true
	case Setswana:
		return Setswana, true
	default:
		return DefaultLanguage, false
	}
}
