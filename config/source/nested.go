package source

// setNestedValue stores value in m under the path segments, creating
// intermediate maps. Empty segments are skipped. A path that runs into an
// existing scalar is dropped.
func setNestedValue(m map[string]any, segments []string, value string) {
	current := m
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if i == len(segments)-1 {
			current[segment] = value
			return
		}
		existing, ok := current[segment]
		if !ok {
			nested := make(map[string]any)
			current[segment] = nested
			current = nested
			continue
		}
		nested, ok := existing.(map[string]any)
		if !ok {
			return
		}
		current = nested
	}
}
