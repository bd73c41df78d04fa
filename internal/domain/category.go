package domain

import (
	"fmt"
	"strings"
)

// CategorySet is the closed label set for one run. It is immutable once built.
type CategorySet struct {
	labels []string
	index  map[string]struct{}
}

// NewCategorySet keeps the first occurrence of every label. Labels must be
// non-empty and free of path separators.
func NewCategorySet(labels []string) (CategorySet, error) {
	set := CategorySet{index: make(map[string]struct{}, len(labels))}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if strings.ContainsAny(label, `/\`) {
			return CategorySet{}, &ConfigurationError{Reason: fmt.Sprintf("category %q contains a path separator", label)}
		}
		if _, ok := set.index[label]; ok {
			continue
		}
		set.index[label] = struct{}{}
		set.labels = append(set.labels, label)
	}
	if len(set.labels) == 0 {
		return CategorySet{}, &ConfigurationError{Reason: "no categories found"}
	}
	return set, nil
}

func (s CategorySet) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

func (s CategorySet) Len() int {
	return len(s.labels)
}

func (s CategorySet) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}
