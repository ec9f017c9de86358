package recordset

import (
	"slices"
	"strings"
)

// Ordering is the result of comparing two records.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Comparator orders two records.
type Comparator func(a, b *Record) Ordering

// FieldOrder compares records field by field in the given precedence. A
// record that has a field sorts before one that lacks it; present values are
// compared as strings, with references compared by id.
func FieldOrder(fields ...string) Comparator {
	return func(a, b *Record) Ordering {
		for _, f := range fields {
			av, aok := sortValue(a, f)
			bv, bok := sortValue(b, f)
			switch {
			case aok && !bok:
				return Less
			case !aok && bok:
				return Greater
			case !aok && !bok:
				continue
			}
			if c := strings.Compare(av, bv); c != 0 {
				return Ordering(c)
			}
		}
		return Equal
	}
}

func sortValue(r *Record, field string) (string, bool) {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return "", false
	}
	switch v.(type) {
	case *Record, map[string]any:
		id, ok := referenceID(v)
		if !ok {
			return "", true
		}
		return keyString(id), true
	}
	return keyString(v), true
}

// SortRecords sorts records in place, keeping the relative order of records
// that compare Equal.
func SortRecords(records []*Record, cmp Comparator) {
	slices.SortStableFunc(records, func(a, b *Record) int {
		return int(cmp(a, b))
	})
}
