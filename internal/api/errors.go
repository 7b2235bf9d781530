package api

import "fmt"

// UnknownErrorMessage is used when a failed response carries no readable body.
const UnknownErrorMessage = "Erro desconhecido"

// RequestFailedError is returned for any non-2xx response. Message holds the
// response body text.
type RequestFailedError struct {
	Status  int
	Message string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("Erro %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure (DNS, refused connection, reset,
// cancelled context).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a 2xx response whose body is not the expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
