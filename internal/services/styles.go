package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bobarin/storyboard/internal/models"
	"gopkg.in/yaml.v3"
)

// StyleCatalogue resolves director styles to prompt text. Entries loaded
// from a file override the built-in descriptions.
type StyleCatalogue struct {
	overrides map[models.DirectorStyle]string
}

type styleFile struct {
	Styles []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"styles"`
}

// DefaultStyles uses the built-in descriptions only.
func DefaultStyles() *StyleCatalogue {
	return &StyleCatalogue{overrides: map[models.DirectorStyle]string{}}
}

// LoadStyleCatalogue reads a YAML file of the form
//
//	styles:
//	  - name: CINEMATIC_NOIR
//	    description: "..."
//
// An empty path returns the defaults.
func LoadStyleCatalogue(path string) (*StyleCatalogue, error) {
	if path == "" {
		return DefaultStyles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style catalogue: %w", err)
	}
	return ParseStyleCatalogue(data)
}

func ParseStyleCatalogue(data []byte) (*StyleCatalogue, error) {
	var f styleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse style catalogue: %w", err)
	}

	c := DefaultStyles()
	for _, s := range f.Styles {
		style := models.DirectorStyle(strings.ToUpper(strings.TrimSpace(s.Name)))
		if !style.Valid() {
			return nil, fmt.Errorf("unknown director style %q in catalogue", s.Name)
		}
		if d := strings.TrimSpace(s.Description); d != "" {
			c.overrides[style] = d
		}
	}

	log.Printf("[Styles] Loaded %d style override(s)", len(c.overrides))
	return c, nil
}

// StyleInfo is one entry of the style listing.
type StyleInfo struct {
	Name        models.DirectorStyle `json:"name"`
	Description string               `json:"description"`
}

// Styles lists every director style in display order with its effective
// description.
func (c *StyleCatalogue) Styles() []StyleInfo {
	out := make([]StyleInfo, 0, len(models.DirectorStyles))
	for _, s := range models.DirectorStyles {
		out = append(out, StyleInfo{Name: s, Description: c.Describe(s)})
	}
	return out
}

// Describe returns the prompt text for style. A nil catalogue uses the defaults.
func (c *StyleCatalogue) Describe(style models.DirectorStyle) string {
	if c != nil {
		if d, ok := c.overrides[style]; ok {
			return d
		}
	}
	return style.Description()
}
