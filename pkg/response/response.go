package response

// Response represents a standard API response format
type Response struct {
	Status     string            `json:"status"`      // "success" or "error"
	StatusCode int               `json:"status_code"` // HTTP status code
	Message    string            `json:"message,omitempty"`
	Data       interface{}       `json:"data,omitempty"`
	Count      *int64            `json:"count,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, message string, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
	}
}

// List wraps one page of results together with the total match count.
func List(statusCode int, message string, data interface{}, count int64) Response {
	r := Success(statusCode, message, data)
	r.Count = &count
	return r
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, message string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Message:    message,
	}
}

// Invalid is an error response with per-field details.
func Invalid(statusCode int, message string, fields map[string]string) Response {
	r := Error(statusCode, message)
	r.Errors = fields
	return r
}
