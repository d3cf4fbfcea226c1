package domain

// ModerationVerdict is the per-request outcome of a classifier call.
// ServiceUnavailable and IsRejected are never both true: an unreachable
// classifier admits the content.
type ModerationVerdict struct {
	IsRejected         bool    `json:"isRejected"`
	Label              string  `json:"label"`
	Score              float64 `json:"score"`
	ServiceUnavailable bool    `json:"serviceUnavailable"`
}
