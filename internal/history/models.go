package history

import "time"

const SchemaVersion = 1

// Run is one recorded analysis pass over the configured paths.
type Run struct {
	SchemaVersion int       `json:"schema_version"`
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	FilesScanned  int       `json:"files_scanned"`
	MethodCount   int       `json:"method_count"`
	ArgumentCount int       `json:"argument_count"`
	ModuleCount   int       `json:"module_count"`
	ClassCount    int       `json:"class_count"`
	TotalCount    int       `json:"total_count"`
	DurationMS    int64     `json:"duration_ms"`
}
