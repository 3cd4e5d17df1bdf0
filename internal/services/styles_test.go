package services

import (
	"testing"

	"github.com/bobarin/storyboard/internal/models"
)

func TestParseStyleCatalogueOverrides(t *testing.T) {
	data := []byte(`
styles:
  - name: cinematic_noir
    description: "Moody rain-soaked streets."
  - name: EPIC_SWEEPING
    description: ""
`)

	c, err := ParseStyleCatalogue(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if got := c.Describe(models.StyleCinematicNoir); got != "Moody rain-soaked streets." {
		t.Errorf("expected override, got %q", got)
	}
	if got := c.Describe(models.StyleEpicSweeping); got != models.StyleEpicSweeping.Description() {
		t.Errorf("blank override should keep the default, got %q", got)
	}
	if got := c.Describe(models.StyleNone); got != models.StyleNone.Description() {
		t.Errorf("expected default for NONE, got %q", got)
	}
}

func TestParseStyleCatalogueRejectsUnknownStyle(t *testing.T) {
	_, err := ParseStyleCatalogue([]byte("styles:\n  - name: WES_ANDERSON\n    description: symmetric\n"))
	if err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestLoadStyleCatalogueEmptyPath(t *testing.T) {
	c, err := LoadStyleCatalogue("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Describe(models.StyleDreamyEthereal) != models.StyleDreamyEthereal.Description() {
		t.Errorf("expected built-in description")
	}
}

func TestStylesListing(t *testing.T) {
	c, err := ParseStyleCatalogue([]byte("styles:\n  - name: DREAMY_ETHEREAL\n    description: Soft haze.\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	list := c.Styles()
	if len(list) != len(models.DirectorStyles) {
		t.Fatalf("expected %d styles, got %d", len(models.DirectorStyles), len(list))
	}
	if list[0].Name != models.StyleNone {
		t.Errorf("expected NONE first, got %s", list[0].Name)
	}
	for _, s := range list {
		want := s.Name.Description()
		if s.Name == models.StyleDreamyEthereal {
			want = "Soft haze."
		}
		if s.Description != want {
			t.Errorf("%s: got %q", s.Name, s.Description)
		}
	}

	var nilCatalogue *StyleCatalogue
	if got := nilCatalogue.Styles(); len(got) != len(models.DirectorStyles) {
		t.Errorf("nil catalogue should list defaults, got %d", len(got))
	}
}
