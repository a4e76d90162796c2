// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for different languages.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
)

// DefaultLanguage is used whenever a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var bundled embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads all translations from a directory of JSON files named
// with the language code (e.g., "en.json").
func NewLocalizer(path string) (*Localizer, error) {
	return NewLocalizerFS(os.DirFS(path))
}

// Bundled returns the translations compiled into the binary.
func Bundled() (*Localizer, error) {
	sub, err := fs.Sub(bundled, "locales")
	if err != nil {
		return nil, err
	}
	return NewLocalizerFS(sub)
}

func NewLocalizerFS(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	if len(l.translations) == 0 {
		return nil, fmt.Errorf("no translations found")
	}
	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Format looks key up and fills its placeholders.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// Supports reports whether lang has its own translation file.
func (l *Localizer) Supports(lang string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.translations[lang]
	return ok
}

// Languages lists the loaded language codes, sorted.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
