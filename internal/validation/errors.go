package validation

import (
	"fmt"
	"strings"
)

// Error is a client input failure. Message is safe to return to callers.
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// Missing reports absent body fields, naming every required field.
func Missing(fields ...string) Error {
	if len(fields) == 1 {
		return Error{Field: fields[0], Message: "Missing required field: " + fields[0]}
	}
	return Error{Message: "Missing required fields: " + strings.Join(fields, ", ")}
}

// MissingParameter reports an absent query parameter.
func MissingParameter(name string) Error {
	return Error{Field: name, Message: "Missing required parameter: " + name}
}

func Invalid(field, format string, args ...any) Error {
	return Error{Field: field, Message: fmt.Sprintf(format, args...)}
}
