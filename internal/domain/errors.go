package domain

// Error is a recoverable domain failure identified by a stable code.
// Callers wrap the sentinels with fmt.Errorf("%w: ...") and match with errors.Is.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes as they appear on the wire.
const (
	CodeMalformed        = "malformed"
	CodeInvalidSignature = "invalid_signature"
	CodeExpired          = "expired"
	CodeNotFound         = "not_found"
	CodeDuplicateCode    = "duplicate_code"
	CodeInvalidTable     = "invalid_table"
	CodeInvalidStatus    = "invalid_status"

	CodeInvalidCredentials = "invalid_credentials"
)

// Common errors
var (
	ErrMalformed        = &Error{Code: CodeMalformed, Message: "malformed input"}
	ErrInvalidSignature = &Error{Code: CodeInvalidSignature, Message: "invalid signature"}
	ErrExpired          = &Error{Code: CodeExpired, Message: "token expired"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrDuplicateCode    = &Error{Code: CodeDuplicateCode, Message: "table code already exists"}
	ErrInvalidTable     = &Error{Code: CodeInvalidTable, Message: "table is not valid for ordering"}
	ErrInvalidStatus    = &Error{Code: CodeInvalidStatus, Message: "status transition not allowed"}
)
