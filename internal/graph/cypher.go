package graph

import (
	"fmt"
	"slices"
	"strings"
)

// labelColumns lists the string properties each node table carries, in
// column order. pk is always first and is the primary key.
var labelColumns = map[Label][]string{
	LabelClass:     {PropPk, PropFullName, PropName, PropModifiers},
	LabelInterface: {PropPk, PropFullName, PropName, PropModifiers},
	LabelMethod:    {PropPk, PropFullName, PropName, PropModifiers, PropArguments, PropReturnType},
	LabelFile:      {PropPk, PropFullName, PropName},
	LabelFolder:    {PropPk, PropFullName, PropName},
	LabelProject:   {PropPk, PropFullName, PropName},
	LabelPackage:   {PropPk, PropFullName, PropName, PropVersion},
}

// Columns returns the property columns of a label's node table.
func Columns(l Label) []string {
	return slices.Clone(labelColumns[l])
}

// identifier returns l as a Cypher identifier. Labels and relationship types
// come from closed enums, but they are still checked before being spliced
// into a statement because Cypher cannot bind them as parameters.
func identifier[T ~string](v T, valid func(T) bool) (string, error) {
	if !valid(v) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, string(v))
	}
	return string(v), nil
}

func labelIdent(l Label) (string, error) {
	return identifier(l, Label.Valid)
}

func relIdent(r RelType) (string, error) {
	return identifier(r, func(r RelType) bool { return slices.Contains(RelTypes, r) })
}

// ConstraintStatements returns the Neo4j uniqueness constraints on pk, one
// per label.
func ConstraintStatements() []string {
	stmts := make([]string, 0, len(Labels))
	for _, l := range Labels {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s_pk IF NOT EXISTS FOR (n:%s) REQUIRE n.pk IS UNIQUE",
			strings.ToLower(string(l)), l))
	}
	return stmts
}

// valueFunc renders the value of property key of the endpoint named by
// prefix ("src" or "dst") inside a statement.
type valueFunc func(prefix, key string) string

// paramValue renders values as query parameters named <prefix>_<key>.
func paramValue(prefix, key string) string {
	return "$" + prefix + "_" + key
}

// setClause renders "alias.k1 = v1, alias.k2 = v2" for the given property
// keys in sorted order, so the statement text is stable.
func setClause(alias, prefix string, keys []string, value valueFunc) string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	parts := make([]string, 0, len(sorted))
	for _, k := range sorted {
		parts = append(parts, fmt.Sprintf("%s.%s = %s", alias, k, value(prefix, k)))
	}
	return strings.Join(parts, ", ")
}

// propKeys returns the keys of props other than pk.
func propKeys(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k != PropPk {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// mergeTripleCypher builds a statement that merges both endpoints of t,
// assigns their properties and merges the edge. With paramValue the
// parameters are named src_<prop> and dst_<prop>; see tripleParams.
func mergeTripleCypher(t Triple, value valueFunc) (string, error) {
	srcLabel, err := labelIdent(t.Source.Label())
	if err != nil {
		return "", err
	}
	dstLabel, err := labelIdent(t.Target.Label())
	if err != nil {
		return "", err
	}
	rel, err := relIdent(t.Type)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE (a:%s {pk: %s})", srcLabel, value("src", PropPk))
	if keys := propKeys(t.Source.Properties()); len(keys) > 0 {
		fmt.Fprintf(&sb, " SET %s", setClause("a", "src", keys, value))
	}
	fmt.Fprintf(&sb, " MERGE (b:%s {pk: %s})", dstLabel, value("dst", PropPk))
	if keys := propKeys(t.Target.Properties()); len(keys) > 0 {
		fmt.Fprintf(&sb, " SET %s", setClause("b", "dst", keys, value))
	}
	fmt.Fprintf(&sb, " MERGE (a)-[:%s]->(b)", rel)
	return sb.String(), nil
}

// tripleParams returns the parameter map matching mergeTripleCypher.
func tripleParams(t Triple) map[string]any {
	params := make(map[string]any)
	for k, v := range t.Source.Properties() {
		params["src_"+k] = v
	}
	for k, v := range t.Target.Properties() {
		params["dst_"+k] = v
	}
	return params
}

// QuoteString renders s as a single-quoted Cypher string literal, escaping
// backslashes, quotes and control characters.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// MergeTripleLiteral renders t as a self-contained Cypher statement with
// escaped literal values, for scripts loaded outside this program.
func MergeTripleLiteral(t Triple) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	src, dst := t.Source.Properties(), t.Target.Properties()
	stmt, err := mergeTripleCypher(t, func(prefix, key string) string {
		props := src
		if prefix == "dst" {
			props = dst
		}
		return QuoteString(fmt.Sprint(props[key]))
	})
	if err != nil {
		return "", err
	}
	return stmt + ";", nil
}
