package i18n

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTranslationFile(t *testing.T, dir, lang, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, lang+".json"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write translation file: %v", err)
	}
}

func TestManager_TranslateLabel(t *testing.T) {
	dir := t.TempDir()
	writeTranslationFile(t, dir, "de", `{
		"global": {
			"Unemployment rate": "Arbeitslosenquote",
			"Age of respondent": "Alter der befragten Person"
		},
		"gss:cross-2022": {
			"Age of respondent": "Alter (GSS)"
		}
	}`)
	m := NewManager(dir, "en", nil)

	// Dataset scope wins over the global table.
	if got := m.TranslateLabel("Age of respondent", "de", "gss:cross-2022"); got != "Alter (GSS)" {
		t.Errorf("dataset-scoped translation = %q", got)
	}
	// Other datasets fall through to the global table.
	if got := m.TranslateLabel("Age of respondent", "de", "soep:core-v38"); got != "Alter der befragten Person" {
		t.Errorf("global fallback = %q", got)
	}
	// Default language passes through untouched.
	if got := m.TranslateLabel("Unemployment rate", "en", ""); got != "Unemployment rate" {
		t.Errorf("default language translated: %q", got)
	}
	// Unknown labels and languages pass through.
	if got := m.TranslateLabel("Household size", "de", ""); got != "Household size" {
		t.Errorf("unknown label translated: %q", got)
	}
	if got := m.TranslateLabel("Unemployment rate", "fr", ""); got != "Unemployment rate" {
		t.Errorf("unknown language translated: %q", got)
	}
}

func TestManager_TranslateVariableLabels(t *testing.T) {
	dir := t.TempDir()
	writeTranslationFile(t, dir, "de", `{
		"global": {"General happiness": "Allgemeines Glück"}
	}`)
	m := NewManager(dir, "en", nil)

	in := map[string]string{
		"happy": "General happiness",
		"age":   "Age of respondent",
	}
	out := m.TranslateVariableLabels(in, "de", "")
	if out["happy"] != "Allgemeines Glück" {
		t.Errorf("translated label = %q", out["happy"])
	}
	if out["age"] != "Age of respondent" {
		t.Errorf("untranslatable label changed: %q", out["age"])
	}
	// The input map stays untouched.
	if in["happy"] != "General happiness" {
		t.Error("input map mutated")
	}

	// Default language returns the input as-is.
	same := m.TranslateVariableLabels(in, "en", "")
	if !reflect.DeepEqual(same, in) {
		t.Errorf("default language changed labels: %v", same)
	}
}

func TestManager_TranslateValueLabels(t *testing.T) {
	dir := t.TempDir()
	writeTranslationFile(t, dir, "de", `{
		"global": {"Very happy": "Sehr glücklich"}
	}`)
	m := NewManager(dir, "en", nil)

	in := map[string]map[string]string{
		"happy": {"1": "Very happy", "2": "Pretty happy"},
	}
	out := m.TranslateValueLabels(in, "de", "")
	if out["happy"]["1"] != "Sehr glücklich" {
		t.Errorf("value label = %q", out["happy"]["1"])
	}
	if out["happy"]["2"] != "Pretty happy" {
		t.Errorf("untranslatable value label changed: %q", out["happy"]["2"])
	}
}

func TestManager_SaveTranslationMergesAndReloads(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, "en", nil)

	err := m.SaveTranslation("de", map[string]string{
		"Unemployment rate": "Arbeitslosenquote",
	}, "")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	// Saved translations apply without constructing a new manager.
	if got := m.TranslateLabel("Unemployment rate", "de", ""); got != "Arbeitslosenquote" {
		t.Errorf("translation not live after save: %q", got)
	}

	// A second save merges instead of replacing.
	err = m.SaveTranslation("de", map[string]string{
		"Age of respondent": "Alter der befragten Person",
	}, "gss:cross-2022")
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if got := m.TranslateLabel("Unemployment rate", "de", ""); got != "Arbeitslosenquote" {
		t.Errorf("earlier translation lost after merge: %q", got)
	}
	if got := m.TranslateLabel("Age of respondent", "de", "gss:cross-2022"); got != "Alter der befragten Person" {
		t.Errorf("dataset-scoped save missing: %q", got)
	}
}

func TestManager_SaveTranslationRejectsEmptyLanguage(t *testing.T) {
	m := NewManager(t.TempDir(), "en", nil)
	if err := m.SaveTranslation("", map[string]string{"x": "y"}, ""); err == nil {
		t.Error("expected an error for an empty language")
	}
}

func TestManager_AvailableLanguages(t *testing.T) {
	dir := t.TempDir()
	writeTranslationFile(t, dir, "de", `{"global": {}}`)
	writeTranslationFile(t, dir, "fr", `{"global": {}}`)
	m := NewManager(dir, "en", nil)

	got := m.AvailableLanguages()
	want := []string{"de", "en", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("languages = %v, want %v", got, want)
	}

	// Missing directory still yields the default language.
	empty := NewManager(filepath.Join(dir, "nope"), "en", nil)
	if got := empty.AvailableLanguages(); !reflect.DeepEqual(got, []string{"en"}) {
		t.Errorf("languages without files = %v", got)
	}
}

func TestManager_MalformedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeTranslationFile(t, dir, "de", `{broken`)
	writeTranslationFile(t, dir, "fr", `{"global": {"Income": "Revenu"}}`)
	m := NewManager(dir, "en", nil)

	if got := m.TranslateLabel("Income", "fr", ""); got != "Revenu" {
		t.Errorf("valid file not loaded next to a malformed one: %q", got)
	}
	if got := m.TranslateLabel("Income", "de", ""); got != "Income" {
		t.Errorf("malformed file produced a translation: %q", got)
	}
}
