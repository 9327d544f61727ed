package controllers

// recordReq is the ingest body for one trace event. The payload may be
// given as base64 bytes or plain text; base64 wins when both are set.
type recordReq struct {
	ID         uint32 `json:"id"`
	Type       string `json:"type"`
	PayloadB64 string `json:"payload"`
	Text       string `json:"text"`
}

// enableReq toggles trace recording.
type enableReq struct {
	Enable bool `json:"enable"`
}

// configureReq sets the trace file path and optionally the byte budget.
type configureReq struct {
	Path        string `json:"path"`
	MaxSizeByte uint64 `json:"maxSizeBytes"`
}

// statusResp wraps an operation acknowledgment.
type statusResp struct {
	Status string `json:"status"`
}
