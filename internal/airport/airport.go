// Package airport is the static airport reference table. Lookups never
// fail: unknown codes yield the zero Airport.
package airport

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed airports.yaml
var builtin []byte

// Airport is one row of the reference table.
type Airport struct {
	ICAO  string `yaml:"icao" json:"icao"`
	IATA  string `yaml:"iata" json:"iata"`
	Name  string `yaml:"name" json:"name"`
	City  string `yaml:"city" json:"city"`
	State string `yaml:"state" json:"state"`
}

// IsZero reports whether a is the missing sentinel.
func (a Airport) IsZero() bool { return a == Airport{} }

// Table indexes airports by ICAO code, IATA code and name.
type Table struct {
	all   []Airport
	index map[string]Airport
}

// Parse builds a Table from a YAML document with a top-level `airports`
// list.
func Parse(doc []byte) (*Table, error) {
	var file struct {
		Airports []Airport `yaml:"airports"`
	}
	if err := yaml.Unmarshal(doc, &file); err != nil {
		return nil, fmt.Errorf("parse airports: %w", err)
	}
	t := &Table{all: file.Airports, index: make(map[string]Airport, len(file.Airports)*3)}
	for _, a := range file.Airports {
		for _, k := range []string{a.ICAO, a.IATA, a.Name} {
			if k = key(k); k != "" {
				t.index[k] = a
			}
		}
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(builtin)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Find looks code up by ICAO, IATA or airport name, ignoring case. The
// second result is false for unknown codes.
func (t *Table) Find(code string) (Airport, bool) {
	a, ok := t.index[key(code)]
	return a, ok
}

// All returns the airports in table order.
func (t *Table) All() []Airport {
	out := make([]Airport, len(t.all))
	copy(out, t.all)
	return out
}

// Describe renders code as "City, State (IATA)" for relay payloads, or the
// raw code when the airport is unknown.
func (t *Table) Describe(code string) string {
	a, ok := t.Find(code)
	if !ok {
		return code
	}
	return fmt.Sprintf("%s, %s (%s)", a.City, a.State, a.IATA)
}

func key(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
