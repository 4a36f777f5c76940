package curve

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalogue maps the model tags clients send to Model values.
type Catalogue map[string]Model

// catalogueFile is the on-disk layout:
//
//	models:
//	  nelson: ["Nelson", "Option 1"]
//	  fracture-fit: ["Fracture fit", "Option 2"]
type catalogueFile struct {
	Models map[string][]string `yaml:"models"`
}

// DefaultCatalogue holds the tags used by both generations of the web client.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		"Nelson":       Nelson,
		"Option 1":     Nelson,
		"Fracture fit": FractureFit,
		"Option 2":     FractureFit,
		"Considere":    Considere,
		"Option 3":     Considere,
	}
}

// Lookup resolves a tag. Unknown and empty tags return DefaultModel and false.
func (c Catalogue) Lookup(tag string) (Model, bool) {
	m, ok := c[strings.TrimSpace(tag)]
	if !ok {
		return DefaultModel, false
	}
	return m, true
}

func (c Catalogue) Tags() []string {
	tags := make([]string, 0, len(c))
	for t := range c {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func (c Catalogue) TagsFor(m Model) []string {
	var tags []string
	for t, mm := range c {
		if mm == m {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags
}

// ParseCatalogue decodes a YAML catalogue.
func ParseCatalogue(data []byte) (Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model catalogue: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("model catalogue has no models")
	}

	names := make([]string, 0, len(f.Models))
	for n := range f.Models {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make(Catalogue)
	for _, name := range names {
		m, err := ParseModelName(name)
		if err != nil {
			return nil, err
		}
		for _, tag := range f.Models[name] {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				return nil, fmt.Errorf("model %s: empty tag", name)
			}
			if prev, dup := out[tag]; dup && prev != m {
				return nil, fmt.Errorf("tag %q mapped to both %s and %s", tag, prev, m)
			}
			out[tag] = m
		}
	}
	return out, nil
}

func LoadCatalogue(path string) (Catalogue, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalogue: %w", err)
	}
	return ParseCatalogue(b)
}
