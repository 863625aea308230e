package models

// Tuple is one observed access event: a principal identifier paired with the
// IP address it was seen from.
type Tuple struct {
	Principal string `json:"principal"`
	IPAddress string `json:"ip_address"`
}

// ScoreResult is the anomaly score the endpoint returns for one tuple. A
// higher dot product means the pairing is more consistent with patterns seen
// during training.
type ScoreResult struct {
	DotProduct float64 `json:"dot_product"`
}

type BucketCheckQuery struct {
	Bucket string `schema:"bucket"`
	Prefix string `schema:"prefix"`
}

type BucketCheckResponse struct {
	Bucket  string `json:"bucket"`
	Message string `json:"message"`
}

type PredictRequest struct {
	EndpointName string  `json:"endpoint_name"`
	Tuples       []Tuple `json:"tuples"`
}

type PredictResponse struct {
	EndpointName string        `json:"endpoint_name"`
	Scores       []ScoreResult `json:"scores"`
}

// WorkflowRequest optionally overrides the configured data location for a
// single run. Empty fields fall back to the service configuration.
type WorkflowRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}
