// Package rtmserr implements the error taxonomy shared by the ingestion
// core: a fixed category set, the vendor status-code mapping, and the
// retry policy that the Stream Session's reconnect logic consults.
package rtmserr

import "fmt"

// Category is one of the fixed error categories the ingestion core
// reasons about when deciding whether a stream session may reconnect.
type Category string

// The full category set from the RTMS error taxonomy.
const (
	CategoryAuth       Category = "auth"
	CategoryMeeting    Category = "meeting"
	CategoryStream     Category = "stream"
	CategoryPermission Category = "permission"
	CategoryNetwork    Category = "network"
	CategoryServer     Category = "server"
	CategoryLimit      Category = "limit"
	CategoryMedia      Category = "media"
	CategoryProtocol   Category = "protocol"
	CategorySecurity   Category = "security"
	CategoryConnection Category = "connection"
	CategoryRequest    Category = "request"
	CategorySDK        Category = "sdk"
	CategoryConfig     Category = "config"
	CategoryUnknown    Category = "unknown"
)

// nonRetryable holds the categories for which a stream session must
// disable reconnect and surface the error to the caller.
var nonRetryable = map[Category]bool{
	CategoryAuth:     true,
	CategorySecurity: true,
	CategoryRequest:  true,
	CategoryMeeting:  true,
	CategoryStream:   true,
}

// RTMSError is the envelope carried by every error the ingestion core
// produces: a machine-readable code/category plus operator-facing
// causes, fixes, and documentation link.
type RTMSError struct {
	Code     int      `json:"code"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Causes   []string `json:"causes,omitempty"`
	Fixes    []string `json:"fixes,omitempty"`
	DocsURL  string   `json:"docsUrl,omitempty"`

	// Cause is the underlying Go error, if any. Not serialized directly;
	// Unwrap exposes it to errors.Is/errors.As.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *RTMSError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rtms: [%s/%d] %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("rtms: [%s/%d]", e.Category, e.Code)
}

// Unwrap exposes the underlying cause, if any, to errors.Is/errors.As.
func (e *RTMSError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the Stream Session may schedule a
// reconnect after this error. Non-retryable categories must disable
// reconnect for the lifetime of the session.
func (e *RTMSError) Retryable() bool {
	return !nonRetryable[e.Category]
}

// statusEntry is one row of the fixed vendor status-code table.
type statusEntry struct {
	category Category
	message  string
}

// statusTable is the fixed mapping from vendor handshake status_code to
// error category and a human-readable default message. Entries not
// present here map to CategoryUnknown via FromStatusCode.
var statusTable = map[int]statusEntry{
	1:  {CategoryAuth, "invalid client credentials"},
	2:  {CategoryAuth, "app not authorized"},
	5:  {CategoryMeeting, "meeting not found"},
	10: {CategoryServer, "internal server error"},
	11: {CategoryServer, "media server unavailable"},
	12: {CategoryNetwork, "network error"},
	13: {CategoryMeeting, "meeting has ended"},
	15: {CategorySecurity, "signature verification failed"},
	16: {CategoryMedia, "media negotiation failed"},
	17: {CategorySecurity, "stream not permitted"},
	18: {CategoryAuth, "token expired"},
}

// FromStatusCode maps a vendor handshake status_code to an RTMSError
// using the fixed table above. Unknown codes map to CategoryUnknown so
// the caller always receives a well-formed error.
func FromStatusCode(code int) *RTMSError {
	if entry, ok := statusTable[code]; ok {
		return &RTMSError{
			Code:     code,
			Category: entry.category,
			Message:  entry.message,
		}
	}
	return &RTMSError{
		Code:     code,
		Category: CategoryUnknown,
		Message:  "unrecognized status code",
	}
}

// New constructs an RTMSError directly, for errors that do not
// originate from a vendor status code (parse failures, config errors,
// adapter failures surfaced as events).
func New(category Category, message string) *RTMSError {
	return &RTMSError{Category: category, Message: message}
}

// Wrap attaches an underlying cause to a new RTMSError of the given
// category, preserving the original error for errors.Is/errors.As.
func Wrap(category Category, message string, cause error) *RTMSError {
	return &RTMSError{Category: category, Message: message, Cause: cause}
}
