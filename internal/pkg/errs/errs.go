/*
Package errs provides the chat protocol's error conditions as a typed Go
error.

The server builds its ERR_* responses from this table; the client uses it
to put a label on a numeric code. The codes live in the same numeric space
as the protocol response types (1001+), so ChatError carries a
protocol.ResponseType rather than a private code.
*/
package errs

import (
	"fmt"
	"strings"

	"gabber/internal/app/protocol"
	"gabber/internal/pkg/logx"
)

// ChatError is a protocol error condition with its user-facing message.
type ChatError struct {
	// Type is the ERR_* response type identifying the condition.
	Type protocol.ResponseType

	// Message is the user-facing error description.
	Message string
}

// Error implements the error interface.
func (e ChatError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Type, int(e.Type), e.Message)
}

// NewError constructs a *ChatError from a predefined error type. The
// optional details are printf-style arguments for templates that carry
// placeholders. An unknown type falls back to ERR_UNKNOWN_REQUEST.
func NewError(t protocol.ResponseType, details ...any) *ChatError {
	template, ok := errorMap[t]
	if !ok {
		logx.Warn("Unknown chat error type requested", "requested_type", int(t))
		template = errorMap[protocol.RspErrUnknownRequest]
	}

	chatErr := template

	if len(details) > 0 {
		if strings.Contains(chatErr.Message, "%") {
			chatErr.Message = fmt.Sprintf(chatErr.Message, details...)
		} else {
			logx.Warn("Details provided for error, but message template has no formatting placeholders. Details ignored.")
		}
	}

	return &chatErr
}
