package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var catalogFiles embed.FS

// Metrics records translation lookups that fell back or missed entirely.
type Metrics interface {
	RecordTranslationMiss(language string)
}

type nopMetrics struct{}

func (nopMetrics) RecordTranslationMiss(string) {}

type table map[string]map[string]string

// Catalog holds the static translation tables, one per language, validated
// at load time so malformed content is a startup failure rather than a
// runtime surprise.
type Catalog struct {
	tables  map[Language]table
	logger  *slog.Logger
	metrics Metrics
}

// LoadCatalog parses and validates the embedded translation files.
// metrics may be nil.
func LoadCatalog(logger *slog.Logger, metrics Metrics) (*Catalog, error) {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	entries, err := fs.ReadDir(catalogFiles, "catalog")
	if err != nil {
		return nil, fmt.Errorf("i18n: read catalog dir: %w", err)
	}

	tables := make(map[Language]table, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		lang, ok := ParseLanguage(name)
		if !ok {
			return nil, fmt.Errorf("i18n: catalog file %q does not match a recognized language", entry.Name())
		}

		raw, err := catalogFiles.ReadFile("catalog/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}

		var tbl table
		if err := yaml.Unmarshal(raw, &tbl); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", entry.Name(), err)
		}

		if err := validateTable(lang, tbl); err != nil {
			return nil, err
		}
		tables[lang] = tbl
	}

	for _, lang := range Languages() {
		if _, ok := tables[lang]; !ok {
			return nil, fmt.Errorf("i18n: no catalog file for language %q", lang)
		}
	}

	return &Catalog{tables: tables, logger: logger, metrics: metrics}, nil
}

func validateTable(lang Language, tbl table) error {
	if len(tbl) == 0 {
		return fmt.Errorf("i18n: catalog for %q is empty", lang)
	}
	for section, keys := range tbl {
		if len(keys) == 0 {
			return fmt.Errorf("i18n: %s: section %q is empty", lang, section)
		}
		for key, value := range keys {
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("i18n: %s: %s.%s has an empty value", lang, section, key)
			}
		}
	}
	return nil
}

// Translate resolves a dotted section.key against the given language.
// Malformed keys are returned unchanged with a warning. Keys absent in the
// requested language fall back to english; keys absent there too resolve to
// the literal key, so the caller never renders an empty string.
func (c *Catalog) Translate(key string, lang Language) string {
	section, subKey, ok := splitKey(key)
	if !ok {
		c.logger.Warn("invalid translation key format", "key", key)
		return key
	}

	if value, ok := c.lookup(lang, section, subKey); ok {
		return value
	}

	c.logger.Warn("missing translation", "key", key, "language", string(lang))
	c.metrics.RecordTranslationMiss(string(lang))

	if lang != DefaultLanguage {
		if value, ok := c.lookup(DefaultLanguage, section, subKey); ok {
			return value
		}
	}

	return key
}

// GetSection returns a copy of the full mapping for a section in the given
// language, or an empty map when the section is unknown. Unlike Translate
// there is no fallback to the default language at the section level.
func (c *Catalog) GetSection(section string, lang Language) map[string]string {
	tbl, ok := c.tables[lang]
	if !ok {
		return map[string]string{}
	}

	keys, ok := tbl[section]
	if !ok {
		return map[string]string{}
	}

	out := make(map[string]string, len(keys))
	for key, value := range keys {
		out[key] = value
	}
	return out
}

func (c *Catalog) lookup(lang Language, section, key string) (string, bool) {
	tbl, ok := c.tables[lang]
	if !ok {
		return "", false
	}
	keys, ok := tbl[section]
	if !ok {
		return "", false
	}
	value, ok := keys[key]
	return value, ok
}

func splitKey(key string) (section, subKey string, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
