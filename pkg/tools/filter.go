package tools

// FilterDefinitions returns the definitions whose names appear in allowed.
// An empty or nil allowed list permits everything. Order is preserved.
func FilterDefinitions(defs []Definition, allowed []string) []Definition {
	if len(allowed) == 0 {
		return defs
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	var filtered []Definition
	for _, d := range defs {
		if allowedSet[d.Name] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
