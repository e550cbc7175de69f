package config

// Check-priority defaults, used by built-in checks that do not override
// Descriptor.Priority explicitly.
const (
	DefaultCheckPriority = 0
)

// Planner defaults.
const (
	DefaultMaxWorkers = defaultMaxWorkers
)

// Result defaults.
const (
	DefaultVerbosity = defaultVerbosity
	DefaultOutput    = defaultOutput
)
