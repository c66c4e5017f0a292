package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the flat error body every failing request returns.
type APIError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode,omitempty"`
	Scope     string `json:"scope,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Details   any    `json:"details,omitempty"`
}
