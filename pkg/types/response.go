package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListPayload is the data body of paginated collection responses.
type ListPayload struct {
	Items      any      `json:"items"`
	Pagination PageMeta `json:"pagination"`
}

type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasMore  bool  `json:"has_more"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
