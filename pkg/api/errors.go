package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Error is a normalized backend error. Fields is populated when the backend
// returned a per-field validation map.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: request failed with status %d", e.Status)
}

// FieldMessages flattens the validation map into "Field: message" strings,
// ordered by field name so output is stable.
func (e *Error) FieldMessages() []string {
	if len(e.Fields) == 0 {
		return nil
	}

	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var messages []string
	for _, field := range fields {
		if field == "" {
			messages = append(messages, strings.Join(e.Fields[field], ", "))
			continue
		}
		label := strings.ToUpper(field[:1]) + field[1:]
		messages = append(messages, label+": "+strings.Join(e.Fields[field], ", "))
	}
	return messages
}

// errorBody covers the error shapes the backend produces: a plain message,
// an "error" string, or a validation map under "errors".
type errorBody struct {
	Message string              `json:"message"`
	ErrMsg  string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func parseError(status int, data []byte) *Error {
	apiErr := &Error{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Fields = body.Errors
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.ErrMsg != "":
			apiErr.Message = body.ErrMsg
		}
	}
	return apiErr
}
