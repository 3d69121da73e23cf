package tools

// FetchEntriesInput filters a chronological listing of the caller's
// entries. All fields are optional.
type FetchEntriesInput struct {
	Category  string `json:"category,omitempty" jsonschema_description:"Filter by category, e.g. development, meeting, learning"`
	ProjectID string `json:"projectId,omitempty" jsonschema_description:"Filter by project UUID"`
	Status    string `json:"status,omitempty" jsonschema_description:"Filter by status: pending or completed"`
	Priority  string `json:"priority,omitempty" jsonschema_description:"Filter by priority: low, medium or high"`
	StartDate string `json:"startDate,omitempty" jsonschema_description:"Only entries created on or after this date (YYYY-MM-DD)"`
	EndDate   string `json:"endDate,omitempty" jsonschema_description:"Only entries created on or before this date (YYYY-MM-DD)"`
	Limit     int32  `json:"limit,omitempty" jsonschema_description:"Maximum number of entries to return"`
}

// FetchSummaryInput bounds a broad overview listing.
type FetchSummaryInput struct {
	StartDate string `json:"startDate,omitempty" jsonschema_description:"Only entries created on or after this date (YYYY-MM-DD)"`
	EndDate   string `json:"endDate,omitempty" jsonschema_description:"Only entries created on or before this date (YYYY-MM-DD)"`
	Limit     int32  `json:"limit,omitempty" jsonschema_description:"Maximum number of entries to summarize"`
}

// SearchEntriesInput is a free-text search over the caller's entries.
type SearchEntriesInput struct {
	Query string `json:"query" jsonschema_description:"What to search for, in natural language"`
	Limit int32  `json:"limit,omitempty" jsonschema_description:"Maximum number of results to return"`
}
