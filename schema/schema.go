package schema

import (
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA: Explicit column declarations for a tabular incident dataset
// ============================================================================
// Every column the store loads is declared up front with a Kind. The loader
// validates values against the declaration instead of guessing types, and
// the engine uses Kind to decide which predicates and aggregates apply.
// ============================================================================

// Kind declares how a column is parsed and stored.
type Kind string

const (
	KindCategory Kind = "category" // free string, used for membership filters and grouping
	KindInteger  Kind = "integer"  // whole number, stored as float64
	KindFloat    Kind = "float"
	KindYear     Kind = "year" // integer year or any date-like value reduced to its year
)

// IsNumeric reports whether values of this kind support range filters.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat || k == KindYear
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCategory, KindInteger, KindFloat, KindYear:
		return true
	}
	return false
}

// Column declares one CSV column.
type Column struct {
	Header      string `json:"header" yaml:"header"`           // exact CSV header
	Key         string `json:"key" yaml:"key"`                 // snake_case identifier used by filters and aggregates
	DisplayName string `json:"displayName" yaml:"displayName"` // chart axis / table label
	Kind        Kind   `json:"kind" yaml:"kind"`
	NonNegative bool   `json:"nonNegative,omitempty" yaml:"nonNegative,omitempty"`
}

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// Validate checks that the declaration is usable by the loader.
func (c Config) Validate() error {
	if len(c.Columns) == 0 {
		return fmt.Errorf("schema %q declares no columns", c.Name)
	}
	keys := make(map[string]bool, len(c.Columns))
	headers := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.Key == "" || col.Header == "" {
			return fmt.Errorf("schema %q: column needs both key and header (key=%q header=%q)", c.Name, col.Key, col.Header)
		}
		if !col.Kind.Valid() {
			return fmt.Errorf("schema %q: column %q has unknown kind %q", c.Name, col.Key, col.Kind)
		}
		if keys[col.Key] {
			return fmt.Errorf("schema %q: duplicate column key %q", c.Name, col.Key)
		}
		if headers[col.Header] {
			return fmt.Errorf("schema %q: duplicate column header %q", c.Name, col.Header)
		}
		keys[col.Key] = true
		headers[col.Header] = true
	}
	return nil
}

// Column returns the declaration for key.
func (c Config) Column(key string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

// Lookup resolves a column by key, exact header, or snake_cased header.
// Selection documents and CLI flags may name columns either way.
func (c Config) Lookup(name string) (Column, bool) {
	name = strings.TrimSpace(name)
	if col, ok := c.Column(name); ok {
		return col, true
	}
	snake := toSnakeCase(name)
	for _, col := range c.Columns {
		if col.Header == name || toSnakeCase(col.Header) == snake {
			return col, true
		}
	}
	return Column{}, false
}

// Keys returns all column keys in declaration order.
func (c Config) Keys() []string {
	keys := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		keys[i] = col.Key
	}
	return keys
}

// CategoryKeys returns keys of category columns in declaration order.
func (c Config) CategoryKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Kind == KindCategory {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// NumericKeys returns keys of integer, float and year columns in declaration order.
func (c Config) NumericKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Kind.IsNumeric() {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// Label returns the display name for key, falling back to a title-cased key.
func (c Config) Label(key string) string {
	if col, ok := c.Column(key); ok && col.DisplayName != "" {
		return col.DisplayName
	}
	return toDisplayName(key)
}

// Category declares a category column.
func Category(header, key string) Column {
	return Column{Header: header, Key: key, DisplayName: toDisplayName(key), Kind: KindCategory}
}

// Measure declares a non-negative numeric column.
func Measure(header, key string, kind Kind) Column {
	return Column{Header: header, Key: key, DisplayName: toDisplayName(key), Kind: kind, NonNegative: true}
}
