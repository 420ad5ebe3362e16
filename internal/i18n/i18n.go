// Package i18n serves the bot's message catalog. Catalogs are flat
// key-to-text YAML files embedded at build time, one per language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog holds every loaded language and answers lookups with fallback to
// the configured default language.
type Catalog struct {
	defaultLang string
	messages    map[string]map[string]string
}

// Load reads all embedded locale files. The default language must be one
// of them.
func Load(defaultLang string) (*Catalog, error) {
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}

	messages := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		lang := strings.TrimSuffix(name, path.Ext(name))

		raw, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		messages[lang] = table
	}

	if _, ok := messages[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q has no catalog", defaultLang)
	}
	return &Catalog{defaultLang: defaultLang, messages: messages}, nil
}

// Has reports whether a catalog exists for the language.
func (c *Catalog) Has(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// DefaultLang returns the configured fallback language.
func (c *Catalog) DefaultLang() string {
	return c.defaultLang
}

// T resolves a message key for the language, falling back to the default
// language and finally to the key itself. Args are applied with Sprintf
// when the resolved text carries format verbs.
func (c *Catalog) T(lang, key string, args ...any) string {
	text, ok := c.lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	if table, ok := c.messages[lang]; ok {
		if text, ok := table[key]; ok {
			return text, true
		}
	}
	if lang != c.defaultLang {
		if text, ok := c.messages[c.defaultLang][key]; ok {
			return text, true
		}
	}
	return "", false
}
