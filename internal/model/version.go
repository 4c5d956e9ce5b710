package model

// Version constants for the persisted snapshot and the tool.
const (
	// SchemaVersion is stamped on every persisted snapshot envelope.
	SchemaVersion = 1

	// AppVersion is the featureplan release version.
	AppVersion = "0.1.0"
)
