// Package i18n renders user-facing messages from an embedded go-i18n catalog.
package i18n

import (
	"embed"
	"log/slog"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// New builds a Translator for the given locale, falling back to English.
func New(locale string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if _, err := bundle.LoadMessageFileFS(localeFS, "active.en.toml"); err != nil {
		slog.Warn("i18n: failed to load catalog", "file", "active.en.toml", "error", err)
	}

	langs := []string{language.English.String()}
	if tag, err := language.Parse(locale); err == nil && tag != language.English {
		langs = append([]string{tag.String()}, langs...)
	}
	return &Translator{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, langs...),
	}
}

// T renders the message identified by key. Unknown keys render as the key.
func (t *Translator) T(key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		return key
	}
	return msg
}

var defaultTranslator = sync.OnceValue(func() *Translator { return New("en") })

// Default returns the process-wide English translator.
func Default() *Translator { return defaultTranslator() }

// T renders key with the default translator.
func T(key string, data map[string]any) string {
	return Default().T(key, data)
}
