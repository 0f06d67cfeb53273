package model

// APIResponse is the generic success envelope. Code is a stable translation
// key the multilingual frontend resolves to localized copy.
type APIResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ErrorResponse mirrors APIResponse for failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
