package domain

// Review is a ledger-resident entry. AnonymousID is derived by the contract
// from the writer identity, never from the application user.
type Review struct {
	AnonymousID string `json:"anonymousId"`
	Message     string `json:"message"`
	Timestamp   uint64 `json:"timestamp"`
	BlockNumber uint64 `json:"blockNumber"`
}

// SubmissionReceipt describes a confirmed ledger write.
type SubmissionReceipt struct {
	TxRef        string `json:"txRef"`
	BlockNumber  uint64 `json:"blockNumber"`
	Cost         uint64 `json:"cost"`
	FromIdentity string `json:"fromIdentity"`
}

type SubmitReviewRequest struct {
	Message string `json:"message"`
}
