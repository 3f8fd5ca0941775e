// Package allocator talks to the remote allocation service.
//
// # Error Codes Reference
//
// Every failure of an allocation round is classified into one of four kinds
// and carries a code users can quote for support reference:
//
//	VAL001 - Missing input: one or both files were not provided
//	         Action: Select both the candidates and internships CSV files
//	         Detected before any network call is issued
//
//	CSV001 - Parse failure: a file could not be read as CSV
//	         Action: Check the file is comma-separated with a header row
//
//	NET001 - Unreachable: the allocation service could not be contacted
//	         Action: Ensure the backend server is running and reachable
//
//	SVC001 - Rejected: the service answered with a non-success status
//	         The service's own detail message is surfaced verbatim when the
//	         body decodes; otherwise a generic message carries the status
//
//	SVC002 - Bad response: the success body could not be decoded
//	         Action: Check the service version matches this portal
package allocator

import "fmt"

// Kind classifies an allocation failure.
type Kind int

const (
	// KindValidation means a required input was missing. No network call
	// was made; the user corrects the input and resubmits.
	KindValidation Kind = iota

	// KindParse means CSV ingestion of an uploaded file failed.
	KindParse

	// KindNetwork means the service endpoint could not be reached at the
	// transport level, as opposed to a server-side rejection.
	KindNetwork

	// KindService means the service answered with a non-success HTTP
	// status, or with a success body that could not be decoded.
	KindService
)

// Error is a classified allocation failure. Message is already user-facing:
// for service rejections it is the service's own detail text.
type Error struct {
	Kind    Kind
	Message string
	Status  int   // HTTP status for KindService, 0 otherwise
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is a display-ready rendering of an error.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// MapError converts any error from an allocation round into a UserMessage.
// Classified errors keep their own message text; anything else falls through
// to a generic message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	e, ok := err.(*Error)
	if !ok {
		return UserMessage{
			Message: err.Error(),
			Action:  "Please try again",
			Code:    "SVC000",
		}
	}

	switch e.Kind {
	case KindValidation:
		return UserMessage{
			Message: e.Message,
			Action:  "Select both the candidates and internships CSV files",
			Code:    "VAL001",
		}
	case KindParse:
		return UserMessage{
			Message: e.Message,
			Action:  "Check the file is comma-separated with a header row",
			Code:    "CSV001",
		}
	case KindNetwork:
		return UserMessage{
			Message: e.Message,
			Action:  "Ensure the backend server is running and reachable",
			Code:    "NET001",
		}
	default:
		code := "SVC001"
		if e.Status == 0 {
			code = "SVC002"
		}
		return UserMessage{
			Message: e.Message,
			Action:  "Review the message and resubmit",
			Code:    code,
		}
	}
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
