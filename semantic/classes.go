// Package semantic defines the fixed set of semantic classes a labeled
// point can belong to.
package semantic

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Class pairs a class id with its name and display color.
type Class struct {
	ID    int
	Name  string
	Color color.NRGBA
}

// ClassSet is an immutable, ordered enumeration of semantic classes. Class
// ids are indices into the ordering.
type ClassSet struct {
	classes []Class
	byName  map[string]int
}

// NewClassSet builds a class set from ordered names and hex display colors
// (e.g. "#aec7e8"). The two slices must be index aligned.
func NewClassSet(names, hexColors []string) (*ClassSet, error) {
	if len(names) == 0 {
		return nil, errors.New("class set must have at least one class")
	}
	if len(names) != len(hexColors) {
		return nil, errors.Errorf("have %d class names but %d colors", len(names), len(hexColors))
	}
	set := &ClassSet{
		classes: make([]Class, 0, len(names)),
		byName:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, ok := set.byName[name]; ok {
			return nil, errors.Errorf("duplicate class name %q", name)
		}
		c, err := colorful.Hex(hexColors[i])
		if err != nil {
			return nil, errors.Wrapf(err, "bad color for class %q", name)
		}
		r, g, b := c.RGB255()
		set.classes = append(set.classes, Class{
			ID:    i,
			Name:  name,
			Color: color.NRGBA{R: r, G: g, B: b, A: 255},
		})
		set.byName[name] = i
	}
	return set, nil
}

// Count returns the number of valid classes C.
func (s *ClassSet) Count() int {
	return len(s.classes)
}

// Name returns the name for a class id.
func (s *ClassSet) Name(id int) (string, error) {
	if id < 0 || id >= len(s.classes) {
		return "", errors.Errorf("class id %d out of range [0, %d)", id, len(s.classes))
	}
	return s.classes[id].Name, nil
}

// Names returns all class names ordered by id.
func (s *ClassSet) Names() []string {
	names := make([]string, len(s.classes))
	for i, c := range s.classes {
		names[i] = c.Name
	}
	return names
}

// Color returns the display color for a class id.
func (s *ClassSet) Color(id int) (color.NRGBA, error) {
	if id < 0 || id >= len(s.classes) {
		return color.NRGBA{}, errors.Errorf("class id %d out of range [0, %d)", id, len(s.classes))
	}
	return s.classes[id].Color, nil
}

// ID returns the class id for a name.
func (s *ClassSet) ID(name string) (int, bool) {
	id, ok := s.byName[name]
	return id, ok
}
