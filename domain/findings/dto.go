package findings

// ResultsQuery carries the parsed query parameters of GET /results.
type ResultsQuery struct {
	JobID  string `query:"job_id"`
	Bucket string `query:"bucket"`
	Key    string `query:"key"`
	Limit  int    `query:"limit"`
	Cursor string `query:"cursor"`
	Offset *int   `query:"offset"`
}

// ResultsResponse is the response body of GET /results. Exactly one of the
// cursor or offset pagination field sets is populated.
type ResultsResponse struct {
	Findings []*Finding `json:"findings"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	HasMore  bool       `json:"has_more"`

	Cursor     string `json:"cursor,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	Offset     *int   `json:"offset,omitempty"`
}
