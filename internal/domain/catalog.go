package domain

import (
	"strconv"
	"strings"
)

// Module is a top-level course unit containing ordered lessons.
type Module struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Lessons  []Lesson `json:"lessons"`
}

// Lesson is a unit of content within a module.
type Lesson struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Tagline     string    `json:"tagline,omitempty"`
	DurationMin int       `json:"durationMin,omitempty"`
	Sections    []Section `json:"sections"`
}

// Number extracts N from a "module-N" identifier. Question banks are keyed by that number.
func (m Module) Number() (int, bool) {
	return ModuleNumber(m.ID)
}

// SectionCount returns the number of sections across all lessons.
func (m Module) SectionCount() int {
	n := 0
	for _, l := range m.Lessons {
		n += len(l.Sections)
	}
	return n
}

// ModuleNumber parses the trailing number of a "module-N" identifier.
func ModuleNumber(moduleID string) (int, bool) {
	idx := strings.LastIndex(moduleID, "-")
	if idx < 0 || idx == len(moduleID)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(moduleID[idx+1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
