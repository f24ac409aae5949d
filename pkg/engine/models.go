package engine

import (
	"sort"
	"strings"

	"github.com/rhuss/bruecke/pkg/api"
)

// modelAliases maps lowercased caller-supplied model names onto the names
// the engine binding understands. The table is where binding-specific
// renames land; today every known name maps to itself.
var modelAliases = map[string]string{
	"gpt-4.1":      "gpt-4.1",
	"gpt-4.1-mini": "gpt-4.1-mini",
	"gpt-4o":       "gpt-4o",
	"gpt-4o-mini":  "gpt-4o-mini",
	"o3-mini":      "o3-mini",
	"o1-mini":      "o1-mini",
	"o1-preview":   "o1-preview",
}

// mapModel resolves a caller-supplied model name case-insensitively against
// the alias table. Unknown names pass through unchanged.
func mapModel(model string) string {
	if alias, ok := modelAliases[strings.ToLower(model)]; ok {
		return alias
	}
	return model
}

// Models returns the catalog served on GET /v1/models: the alias table's
// known names, sorted.
func (e *Engine) Models() api.ModelList {
	names := make([]string, 0, len(modelAliases))
	for name := range modelAliases {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([]api.Model, len(names))
	for i, name := range names {
		data[i] = api.Model{
			ID:      name,
			Object:  "model",
			Created: e.created,
			OwnedBy: "system",
		}
	}
	return api.ModelList{Object: "list", Data: data}
}
