package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings keeps the orderings whose field is in allowed, mapped to its column.
// Anything else is dropped so user input never reaches ORDER BY verbatim.
func CleanOrderings(ords []DBOrdering, allowed map[string]string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		col, ok := allowed[strings.ToLower(ord.Field)]
		if !ok {
			continue
		}
		cleaned = append(cleaned, DBOrdering{Field: col, Ascending: ord.Ascending})
	}
	return cleaned
}
