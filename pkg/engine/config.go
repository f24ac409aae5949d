package engine

// Config holds engine configuration.
type Config struct {
	// Binding names the turn engine binding behind the adapter ("thread" or
	// "direct"). It is only used as a metric label.
	Binding string

	// WorkingDir is the working directory handed to every submitted turn.
	// Empty means the engine binding's default.
	WorkingDir string
}
