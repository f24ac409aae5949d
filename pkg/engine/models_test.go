package engine

import "testing"

func TestMapModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"known name", "gpt-4o", "gpt-4o"},
		{"known name uppercased", "GPT-4O-Mini", "gpt-4o-mini"},
		{"reasoning model", "o3-mini", "o3-mini"},
		{"unknown passes through", "my-custom-model", "my-custom-model"},
		{"unknown keeps case", "My-Custom-Model", "My-Custom-Model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapModel(tt.model); got != tt.want {
				t.Errorf("mapModel(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestModels(t *testing.T) {
	mgr, _ := newScriptedManager(nil)
	e := newTestEngine(t, mgr)

	list := e.Models()
	if list.Object != "list" {
		t.Errorf("Object = %q, want %q", list.Object, "list")
	}
	if len(list.Data) != len(modelAliases) {
		t.Fatalf("len(Data) = %d, want %d", len(list.Data), len(modelAliases))
	}
	for i := 1; i < len(list.Data); i++ {
		if list.Data[i-1].ID >= list.Data[i].ID {
			t.Fatalf("Data not sorted: %q before %q", list.Data[i-1].ID, list.Data[i].ID)
		}
	}
	for _, m := range list.Data {
		if m.Object != "model" {
			t.Errorf("Data[%q].Object = %q, want %q", m.ID, m.Object, "model")
		}
		if _, ok := modelAliases[m.ID]; !ok {
			t.Errorf("Data contains unknown model %q", m.ID)
		}
	}
}
