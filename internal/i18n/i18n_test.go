package i18n

import (
	"strings"
	"testing"
)

func TestLoadAndLookup(t *testing.T) {
	c, err := Load("ro")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Has("ro") || !c.Has("en") {
		t.Fatal("both catalogs should be loaded")
	}
	if c.DefaultLang() != "ro" {
		t.Fatalf("default lang: %q", c.DefaultLang())
	}

	if got := c.T("ro", "template.sunday"); got != "Serviciu" {
		t.Fatalf("ro template.sunday: %q", got)
	}
	if got := c.T("en", "template.sunday"); got != "Sunday Service" {
		t.Fatalf("en template.sunday: %q", got)
	}
}

func TestLoadUnknownDefault(t *testing.T) {
	if _, err := Load("fr"); err == nil {
		t.Fatal("expected error for a language without a catalog")
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	c, err := Load("ro")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Unknown language falls back to the default catalog.
	if got := c.T("de", "template.sunday"); got != "Serviciu" {
		t.Fatalf("fallback: %q", got)
	}

	// Unknown key degrades to the key itself, never to an empty string.
	if got := c.T("ro", "no.such.key"); got != "no.such.key" {
		t.Fatalf("missing key: %q", got)
	}
}

func TestFormatArgs(t *testing.T) {
	c, err := Load("ro")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := c.T("en", "wizard.created", 12)
	if got != "Event #12 created. 🎉" {
		t.Fatalf("formatted: %q", got)
	}

	confirm := c.T("en", "wizard.confirm", "Sunday Service", "25/01/2025", "10:30", "Main Hall", 2)
	for _, want := range []string{"Sunday Service", "25/01/2025", "10:30", "Main Hall", "2"} {
		if !strings.Contains(confirm, want) {
			t.Fatalf("confirm text missing %q: %q", want, confirm)
		}
	}
}

func TestEveryKeyExistsInBothLanguages(t *testing.T) {
	c, err := Load("ro")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for key := range c.messages["ro"] {
		if _, ok := c.messages["en"][key]; !ok {
			t.Errorf("key %q missing from en catalog", key)
		}
	}
	for key := range c.messages["en"] {
		if _, ok := c.messages["ro"][key]; !ok {
			t.Errorf("key %q missing from ro catalog", key)
		}
	}
}
