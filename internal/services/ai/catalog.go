package ai

// ModelOption is one selectable Groq model.
type ModelOption struct {
	ID          string
	DisplayName string
}

const (
	// DefaultModel is preselected during setup.
	DefaultModel = "llama3-70b-8192"
	// WelcomeModel generates AI welcome messages; kept small and fast.
	WelcomeModel = "gemma2-9b-it"
)

// AvailableModels enumerates the models offered on the setup keyboard, in
// display order.
var AvailableModels = []ModelOption{
	{ID: "llama3-70b-8192", DisplayName: "Llama 3 70B"},
	{ID: "mixtral-8x7b-32768", DisplayName: "Mixtral 8x7B"},
	{ID: "gemma2-9b-it", DisplayName: "Gemma 2 9B"},
	{ID: "deepseek-r1-distill-llama-70b", DisplayName: "DeepSeek R1 Distill 70B"},
	{ID: "meta-llama/Llama-4-scout-17B-Chat-alpha-v0.1", DisplayName: "Llama 4 Scout 17B"},
}

// KnownModel reports whether id is in the catalog.
func KnownModel(id string) bool {
	for _, m := range AvailableModels {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ModelDisplayName returns the catalog display name, or id itself for
// models configured before a catalog change.
func ModelDisplayName(id string) string {
	for _, m := range AvailableModels {
		if m.ID == id {
			return m.DisplayName
		}
	}
	return id
}
