package geometry

// Displayable is a location that survived parsing, with the index of the
// record it came from.
type Displayable struct {
	Index    int      `json:"index"`
	Kind     Kind     `json:"kind"`
	Boundary Boundary `json:"coordinates"`
	Center   Point    `json:"center"`
}

// FilterDisplayable parses every record and keeps the ones that can be drawn.
// Unparsable records are dropped and counted in skipped; len(items)+skipped
// always equals len(records).
func FilterDisplayable(records []string) (items []Displayable, skipped int) {
	items = make([]Displayable, 0, len(records))
	for i, rec := range records {
		loc := ParseLocation(rec)
		if !loc.OK() {
			skipped++
			continue
		}
		items = append(items, Displayable{
			Index:    i,
			Kind:     loc.Kind,
			Boundary: loc.Boundary,
			Center:   Centroid(loc.Boundary),
		})
	}
	return items, skipped
}
