// Package taxonomy turns a raw folder listing into the category set the
// classifier may choose from.
package taxonomy

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"playlistomatic/internal/domain"
	"playlistomatic/internal/storage/atomicfile"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

type Rename struct {
	Contains string `yaml:"contains"`
	Label    string `yaml:"label"`
}

// Rules describe the cleanup applied to each line of the listing, in field
// order: drop lines, strip substrings, remove every remaining '/', rename,
// drop labels.
type Rules struct {
	DropLinesContaining  []string `yaml:"drop_lines_containing"`
	Strip                []string `yaml:"strip"`
	Rename               []Rename `yaml:"rename"`
	DropLabelsContaining []string `yaml:"drop_labels_containing"`
}

func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded rules: %v", err))
	}
	return rules
}

func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse taxonomy rules: %w", err)
	}
	return rules, nil
}

// LoadRules reads a rules file; an empty path selects the built-in rules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}
	return ParseRules(data)
}

// Read loads the listing at path and extracts the category set.
func Read(path string, rules Rules) (domain.CategorySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CategorySet{}, err
	}
	return Extract(string(data), rules)
}

// Extract applies rules to raw. An empty outcome is a configuration error.
func Extract(raw string, rules Rules) (domain.CategorySet, error) {
	raw = norm.NFC.String(raw)
	var labels []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if containsAny(line, rules.DropLinesContaining) {
			continue
		}
		for _, s := range rules.Strip {
			if s = norm.NFC.String(s); s != "" {
				line = strings.ReplaceAll(line, s, "")
			}
		}
		label := strings.TrimSpace(strings.ReplaceAll(line, "/", ""))
		if label == "" {
			continue
		}
		for _, r := range rules.Rename {
			if r.Contains != "" && strings.Contains(label, norm.NFC.String(r.Contains)) {
				label = r.Label
				break
			}
		}
		if containsAny(label, rules.DropLabelsContaining) {
			continue
		}
		labels = append(labels, label)
	}
	return domain.NewCategorySet(labels)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(s, norm.NFC.String(n)) {
			return true
		}
	}
	return false
}

// WriteFiltered stores the cleaned labels one per line.
func WriteFiltered(path string, set domain.CategorySet) error {
	return atomicfile.WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(set.Labels(), "\n"))
		return err
	})
}
