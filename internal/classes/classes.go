// Package classes defines the character classes a model recognises and the
// built-in taxonomy offered to collaborators.
package classes

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Class is a single recognisable character.
type Class struct {
	Value  string `json:"value" yaml:"value"`   // the character itself; identity
	Repr   string `json:"repr" yaml:"repr"`     // display label
	Folder string `json:"folder" yaml:"folder"` // dataset sub-directory name
}

func (c Class) String() string {
	return c.Repr
}

// Set is an ordered sequence of classes. The position of a class is its label
// index for training and prediction.
type Set struct {
	classes []Class
	index   map[string]int
}

var (
	ErrDuplicate = errors.New("duplicate class value")
	ErrUnknown   = errors.New("unknown class value")
)

// New builds a set from classes in the given order. Values are NFC-normalised
// so that visually equal characters share one identity.
func New(cls ...Class) (Set, error) {
	s := Set{
		classes: make([]Class, 0, len(cls)),
		index:   make(map[string]int, len(cls)),
	}
	for _, c := range cls {
		c.Value = norm.NFC.String(c.Value)
		if c.Value == "" {
			return Set{}, fmt.Errorf("class %q: empty value", c.Repr)
		}
		if c.Folder == "" {
			return Set{}, fmt.Errorf("class %q: empty folder", c.Value)
		}
		if _, ok := s.index[c.Value]; ok {
			return Set{}, fmt.Errorf("%w: %q", ErrDuplicate, c.Value)
		}
		if c.Repr == "" {
			c.Repr = c.Value
		}
		s.index[c.Value] = len(s.classes)
		s.classes = append(s.classes, c)
	}
	return s, nil
}

// MustNew is New for static taxonomies; it panics on error.
func MustNew(cls ...Class) Set {
	s, err := New(cls...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of classes.
func (s Set) Len() int { return len(s.classes) }

// At returns the class with label index i.
func (s Set) At(i int) Class { return s.classes[i] }

// All returns a copy of the classes in label order.
func (s Set) All() []Class {
	return append([]Class(nil), s.classes...)
}

// Index returns the label index of a class value.
func (s Set) Index(value string) (int, bool) {
	i, ok := s.index[norm.NFC.String(value)]
	return i, ok
}

// Lookup returns the class with the given value.
func (s Set) Lookup(value string) (Class, bool) {
	i, ok := s.Index(value)
	if !ok {
		return Class{}, false
	}
	return s.classes[i], true
}

// Values returns the class values in label order.
func (s Set) Values() []string {
	values := make([]string, len(s.classes))
	for i, c := range s.classes {
		values[i] = c.Value
	}
	return values
}

// SortedValues returns the class values sorted ascending. The order of the set
// does not affect the result.
func (s Set) SortedValues() []string {
	values := s.Values()
	sort.Strings(values)
	return values
}

// Select returns the subset of classes whose values are listed, keeping the
// order of s. An empty list selects everything.
func (s Set) Select(values ...string) (Set, error) {
	if len(values) == 0 {
		return s, nil
	}
	want := make(map[int]bool, len(values))
	for _, v := range values {
		i, ok := s.Index(v)
		if !ok {
			return Set{}, fmt.Errorf("%w: %q", ErrUnknown, v)
		}
		want[i] = true
	}
	var picked []Class
	for i, c := range s.classes {
		if want[i] {
			picked = append(picked, c)
		}
	}
	return New(picked...)
}
