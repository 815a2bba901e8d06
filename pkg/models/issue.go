package models

// RawIssue is one upstream ticket as returned by the Jira search endpoint:
// a stable key plus an open-ended bag of named fields. Scalar fields arrive
// as strings or numbers; picklist fields arrive as objects carrying a
// "value" property; user fields carry "displayName"; the status field
// carries "name". Readers must go through extraction.FieldString instead of
// asserting a shape.
type RawIssue struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

// Row is one normalized output record: a flat mapping of column names to
// scalar values. Every row carries the source ticket key under "log_key".
// Date-valued columns hold RFC3339 strings or "".
type Row map[string]string
