package ir

// Version constants for the instruction encoding and engine.
const (
	// IRVersion is the instruction encoding version.
	IRVersion = "1"

	// EngineVersion is the chipflow engine version.
	EngineVersion = "0.1.0"
)
