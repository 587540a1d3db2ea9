package inmemdb

import "sort"

// sorted returns the table values by insertion order.
func sorted[T any](m map[string]row[T]) []T {
	rows := make([]row[T], 0, len(m))
	for _, r := range m {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	vals := make([]T, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, r.val)
	}
	return vals
}
