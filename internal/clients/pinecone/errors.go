package pinecone

import "fmt"

type ErrorCode string

const (
	ErrorValidation      ErrorCode = "validation_failed"
	ErrorEncodeFailed    ErrorCode = "encode_failed"
	ErrorDecodeFailed    ErrorCode = "decode_failed"
	ErrorTransportFailed ErrorCode = "transport_failed"
	ErrorTimeout         ErrorCode = "timeout"
	ErrorQueryFailed     ErrorCode = "query_failed"
)

type OperationError struct {
	Code       ErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "pinecone operation failed"
	}
	detail := e.Message
	if detail == "" && e.Cause != nil {
		detail = e.Cause.Error()
	}
	if detail == "" {
		return fmt.Sprintf("pinecone %s failed (code=%s status=%d)", e.Operation, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("pinecone %s failed (code=%s status=%d): %s", e.Operation, e.Code, e.StatusCode, detail)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func opErr(op string, code ErrorCode, msg string, cause error) *OperationError {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}
