// ABOUTME: Calendar name resolution against the directory snapshot
// ABOUTME: Tries exact variants first, then an ordered substring scan

package directory

import "strings"

// Resolve maps a calendar ID or friendly name to a calendar ID. The first
// matching step wins:
//
//  1. exact lookup of the lower-cased input
//  2. exact lookup with periods stripped
//  3. exact lookup with whitespace stripped
//  4. first key, in insertion order, that contains the input or is contained by it
//
// Unmatched input, including the empty string, is returned unchanged so
// raw calendar IDs pass straight through.
func (d *Directory) Resolve(input string) string {
	if input == "" {
		return input
	}

	idx := d.current.Load()
	lower := strings.ToLower(input)

	for _, candidate := range []string{lower, stripPeriods(lower), stripSpace(lower)} {
		if id, ok := idx.ids[candidate]; ok {
			return id
		}
	}

	for _, key := range idx.keys {
		if strings.Contains(key, lower) || strings.Contains(lower, key) {
			return idx.ids[key]
		}
	}

	return input
}
