package commons

import "net/http"

type Response[T any] struct {
	Success bool     `json:"success"`
	Status  int      `json:"status"`
	Message string   `json:"message,omitempty"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Status:  http.StatusOK,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](status int, message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Status:  status,
		Message: message,
		Errors:  errors,
	}
}
