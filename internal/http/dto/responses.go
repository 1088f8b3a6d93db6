package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ReleaseResponse struct {
	AuctionID string `json:"auction_id"`
	Status    string `json:"status"`
	ItemKey   string `json:"item_key"`
}
