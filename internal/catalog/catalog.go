// Package catalog holds the immutable course content: modules, lessons, sections
// and the quiz question bank. It is loaded once at startup and only read afterwards.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cx-lms-service/internal/domain"
)

//go:embed data/modules.json
var defaultModules []byte

//go:embed data/questions.json
var defaultQuestions []byte

type lessonRef struct {
	module int
	lesson int
}

// Catalog is a read-only index over an ordered list of modules.
type Catalog struct {
	modules []domain.Module
	byID    map[string]int
	lessons map[string]lessonRef
}

// New indexes modules, rejecting duplicate module or lesson identifiers.
func New(modules []domain.Module) (*Catalog, error) {
	c := &Catalog{
		modules: modules,
		byID:    make(map[string]int, len(modules)),
		lessons: make(map[string]lessonRef),
	}
	for i, m := range modules {
		if m.ID == "" {
			return nil, fmt.Errorf("module %d has no id", i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		c.byID[m.ID] = i
		for j, l := range m.Lessons {
			if _, dup := c.lessons[l.ID]; dup {
				return nil, fmt.Errorf("duplicate lesson id %q", l.ID)
			}
			c.lessons[l.ID] = lessonRef{module: i, lesson: j}
		}
	}
	return c, nil
}

// Load decodes a JSON array of modules.
func Load(r io.Reader) (*Catalog, error) {
	var modules []domain.Module
	if err := json.NewDecoder(r).Decode(&modules); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(modules)
}

// LoadFile reads a catalog from path, or the embedded catalog when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultModules))
}

// Modules returns modules in catalog order.
func (c *Catalog) Modules() []domain.Module {
	return c.modules
}

// Module looks a module up by identifier.
func (c *Catalog) Module(id string) (domain.Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Module{}, false
	}
	return c.modules[i], true
}

// Lesson returns the lesson and the identifier of its owning module.
func (c *Catalog) Lesson(id string) (domain.Lesson, string, bool) {
	ref, ok := c.lessons[id]
	if !ok {
		return domain.Lesson{}, "", false
	}
	m := c.modules[ref.module]
	return m.Lessons[ref.lesson], m.ID, true
}

// TotalLessons counts lessons across all modules.
func (c *Catalog) TotalLessons() int {
	return len(c.lessons)
}
