package evaluation

// QueryResult contains the ranking-quality scores for a single query.
type QueryResult struct {
	QueryIndex int `json:"query_index"`
	RowCount   int `json:"row_count"`

	// DCG is the DCG achieved by the model scores, per cutoff.
	DCG map[int]float64 `json:"dcg"`

	// MaxDCG is the best achievable DCG for the query's labels, per cutoff.
	MaxDCG map[int]float64 `json:"max_dcg"`

	// NDCG is DCG normalized by MaxDCG, per cutoff. Zero when the query
	// has no relevant rows.
	NDCG map[int]float64 `json:"ndcg"`
}

// Summary aggregates results across the queries of one run.
type Summary struct {
	QueryCount     int             `json:"query_count"`
	SkippedQueries int             `json:"skipped_queries"`
	MeanDCG        map[int]float64 `json:"mean_dcg"`
	MeanNDCG       map[int]float64 `json:"mean_ndcg"`
}

// Report is the full outcome of an evaluation run.
type Report struct {
	RunID   string         `json:"run_id"`
	Dataset string         `json:"dataset"`
	Results []*QueryResult `json:"results"`
	Summary *Summary       `json:"summary"`
}
