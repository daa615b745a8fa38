// Copyright (c) Microsoft. All rights reserved.

// Package tools holds the function tool tables agents can be configured with.
package tools

import (
	"fmt"
	"sort"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// ErrUnknownTable is returned for a tool table name with no registration.
var ErrUnknownTable = fmt.Errorf("%w: unknown tool table", af.ErrConfiguration)

// Table builds a fresh set of tools. Agents call it once at construction.
type Table func() []af.Tool

var tables = map[string]Table{
	"CustomerTools": Customer,
}

// Names lists the registered tables.
func Names() []string {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the tools of the named tables, in order.
func Resolve(names ...string) ([]af.Tool, error) {
	var out []af.Tool
	for _, n := range names {
		table, ok := tables[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTable, n, Names())
		}
		out = append(out, table()...)
	}
	return out, nil
}

// Lookup builds the registered tool with the given name, searching every table.
func Lookup(name string) (af.Tool, bool) {
	for _, n := range Names() {
		for _, t := range tables[n]() {
			if t.Name() == name {
				return t, true
			}
		}
	}
	return nil, false
}
