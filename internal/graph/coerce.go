package graph

import "fmt"

// ---------- Type coercion helpers ----------
// The database drivers return typed Go values (int64, float64, string, nil).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// rowToEdge converts a 5-column result row into an EdgeRecord.
// Column order: type, source label, source pk, target label, target pk.
func rowToEdge(r []any) EdgeRecord {
	return EdgeRecord{
		Type:        RelType(toString(r[0])),
		SourceLabel: Label(toString(r[1])),
		SourcePk:    toString(r[2]),
		TargetLabel: Label(toString(r[3])),
		TargetPk:    toString(r[4]),
	}
}
