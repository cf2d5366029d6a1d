// Package i18n serves the bot's user-facing texts from YAML catalogs.
//
// A catalog file holds one or more languages at its top level; nested
// sections are addressed with dot-separated keys, e.g. "menu.main".
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Translator resolves localized strings using dot-separated keys.
// Unknown keys are returned unchanged.
type Translator interface {
	T(key string) string
	Lang() string
}

// messages maps a flattened key to its text.
type messages map[string]string

// Manager holds the catalogs of every loaded language.
type Manager struct {
	langs       map[string]messages
	defaultLang string
}

// Load reads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: open embedded locales: %w", err)
	}
	return LoadFS(sub, defaultLang)
}

// LoadFS reads every .yaml or .yml file at the root of fsys. Later files
// override keys of earlier ones.
func LoadFS(fsys fs.FS, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}

	names, err := fs.Glob(fsys, "*.y*ml")
	if err != nil {
		return nil, fmt.Errorf("i18n: list locales: %w", err)
	}
	sort.Strings(names)

	langs := make(map[string]messages)
	loaded := 0
	for _, name := range names {
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		if err := mergeFile(fsys, name, langs); err != nil {
			return nil, err
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found")
	}

	if _, ok := langs[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{langs: langs, defaultLang: defaultLang}, nil
}

// Translator returns a translator for lang, or for the default language
// when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := m.langs[lang]; !ok {
		lang = m.defaultLang
	}

	return translator{
		lang:     lang,
		primary:  m.langs[lang],
		fallback: m.langs[m.defaultLang],
	}
}

// Languages lists the loaded language codes in sorted order.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	out := make([]string, 0, len(m.langs))
	for lang := range m.langs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Tf translates key and formats the result with args.
func Tf(t Translator, key string, args ...any) string {
	if t == nil {
		return key
	}
	return fmt.Sprintf(t.T(key), args...)
}

type translator struct {
	lang     string
	primary  messages
	fallback messages
}

func (t translator) Lang() string { return t.lang }

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if text, ok := t.primary[key]; ok && text != "" {
		return text
	}
	if text, ok := t.fallback[key]; ok && text != "" {
		return text
	}
	return key
}

func mergeFile(fsys fs.FS, name string, into map[string]messages) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("i18n: read file %s: %w", name, err)
	}

	// yaml.v3 decodes nested mappings as map[string]any.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("i18n: parse file %s: %w", name, err)
	}

	for rawLang, tree := range doc {
		lang := strings.ToLower(strings.TrimSpace(rawLang))
		section, ok := tree.(map[string]any)
		if lang == "" || !ok {
			continue
		}

		msgs := into[lang]
		if msgs == nil {
			msgs = make(messages)
			into[lang] = msgs
		}
		collect("", section, msgs)
	}

	return nil
}

func collect(prefix string, section map[string]any, out messages) {
	for key, value := range section {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			out[key] = v
		case map[string]any:
			collect(key, v, out)
		}
	}
}
