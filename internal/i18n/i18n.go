// Package i18n translates variable and value labels between languages.
// Translation tables live as JSON files under the cache's translations
// directory, one file per language, keyed by dataset identifier with a
// "global" table as fallback.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// langTable maps a scope ("global" or a dataset identifier) to its
// label translations.
type langTable map[string]map[string]string

// Manager loads and applies label translations.
type Manager struct {
	dir         string
	defaultLang string
	logger      *zap.Logger

	mu           sync.RWMutex
	translations map[string]langTable
}

// NewManager creates a Manager reading translation files from dir.
// defaultLang is the language the source labels are assumed to be in.
func NewManager(dir, defaultLang string, logger *zap.Logger) *Manager {
	if defaultLang == "" {
		defaultLang = "en"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		dir:          dir,
		defaultLang:  defaultLang,
		logger:       logger,
		translations: make(map[string]langTable),
	}
	m.reload()
	return m
}

func (m *Manager) reload() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return
	}

	loaded := make(map[string]langTable)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		var table langTable
		if err := json.Unmarshal(data, &table); err != nil {
			m.logger.Warn("skipping malformed translation file",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		loaded[lang] = table
	}

	m.mu.Lock()
	m.translations = loaded
	m.mu.Unlock()
}

// TranslateLabel returns the translation of label in the given
// language, preferring a dataset-scoped entry over the global table.
// Unknown labels and the default language pass through unchanged.
func (m *Manager) TranslateLabel(label, language, datasetID string) string {
	if label == "" || language == "" || language == m.defaultLang {
		return label
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	table, ok := m.translations[language]
	if !ok {
		return label
	}
	if datasetID != "" {
		if scoped, ok := table[datasetID]; ok {
			if t, ok := scoped[label]; ok {
				return t
			}
		}
	}
	if global, ok := table["global"]; ok {
		if t, ok := global[label]; ok {
			return t
		}
	}
	return label
}

// TranslateVariableLabels translates every label in a variable label map.
func (m *Manager) TranslateVariableLabels(labels map[string]string, language, datasetID string) map[string]string {
	if language == "" || language == m.defaultLang || len(labels) == 0 {
		return labels
	}
	out := make(map[string]string, len(labels))
	for name, label := range labels {
		out[name] = m.TranslateLabel(label, language, datasetID)
	}
	return out
}

// TranslateValueLabels translates every label in a value label map.
func (m *Manager) TranslateValueLabels(labels map[string]map[string]string, language, datasetID string) map[string]map[string]string {
	if language == "" || language == m.defaultLang || len(labels) == 0 {
		return labels
	}
	out := make(map[string]map[string]string, len(labels))
	for name, values := range labels {
		translated := make(map[string]string, len(values))
		for value, label := range values {
			translated[value] = m.TranslateLabel(label, language, datasetID)
		}
		out[name] = translated
	}
	return out
}

// SaveTranslation merges label translations into a language file and
// reloads the in-memory tables. An empty datasetID writes to the
// global table.
func (m *Manager) SaveTranslation(language string, translations map[string]string, datasetID string) error {
	if language == "" {
		return fmt.Errorf("i18n: language must not be empty")
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("i18n: create translations dir: %w", err)
	}

	path := filepath.Join(m.dir, language+".json")
	existing := langTable{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			existing = langTable{}
		}
	}

	scope := datasetID
	if scope == "" {
		scope = "global"
	}
	if existing[scope] == nil {
		existing[scope] = make(map[string]string)
	}
	for label, t := range translations {
		existing[scope][label] = t
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("i18n: encode translations: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("i18n: write %s: %w", path, err)
	}

	m.reload()
	return nil
}

// AvailableLanguages lists the language codes with translation files,
// always including the default language.
func (m *Manager) AvailableLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	langs := []string{m.defaultLang}
	for lang := range m.translations {
		if lang != m.defaultLang {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}
