package dto

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}
