package view

import "strings"

// FilterBySearch hides rows whose name does not contain term, ignoring case. The term is
// matched as typed, surrounding spaces included. An empty term shows everything. rows is
// modified in place and returned.
func FilterBySearch(rows []Row, term string) []Row {
	needle := strings.ToLower(term)
	for i := range rows {
		rows[i].Visible = needle == "" || strings.Contains(strings.ToLower(rows[i].Name), needle)
	}
	return rows
}
