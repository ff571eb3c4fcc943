package graph

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// PkScheme is the version of the identity hashing scheme. It prefixes every
// primary key so keys produced by different schemes never compare equal.
const PkScheme = 1

// identitySep separates identity fields inside the hashed string. NUL cannot
// appear in identifiers or paths, so field boundaries are unambiguous.
const identitySep = "\x00"

// derivePk hashes the identity fields with xxh64 and renders the result as
// "<scheme>:<16 hex digits>". The result depends only on the fields.
func derivePk(fields ...string) string {
	sum := xxhash.Sum64String(strings.Join(fields, identitySep))
	return fmt.Sprintf("%d:%016x", PkScheme, sum)
}

// Param is a single method parameter.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// renderArguments renders parameters as "type name, type name".
func renderArguments(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		switch {
		case p.Type == "":
			parts[i] = p.Name
		case p.Name == "":
			parts[i] = p.Type
		default:
			parts[i] = p.Type + " " + p.Name
		}
	}
	return strings.Join(parts, ", ")
}

// signature renders the parameter types only, so renaming a parameter keeps
// the method's identity.
func signature(params []Param) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	return strings.Join(types, ",")
}

// renderModifiers joins declaration modifiers for display.
func renderModifiers(mods []string) string {
	return strings.Join(mods, ", ")
}
