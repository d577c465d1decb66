package ir

// Version constants for the schema format and the storage engine.
const (
	// SchemaFormatVersion is the version of the EntitySchema encoding.
	SchemaFormatVersion = "1"

	// StorageVersion is the wsm storage engine version.
	StorageVersion = "0.1.0"
)
