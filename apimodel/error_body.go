package apimodel

import (
	"encoding/json"
	"strings"
)

// CodeAccountInactive is the error code sent when an account is deactivated.
const CodeAccountInactive = "ACCOUNT_INACTIVE"

// ErrorBody is the loose shape of a failed response. Backends disagree on which
// field carries the reason, so every one of them is optional.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ParseErrorBody decodes body tolerantly. Non-JSON or non-object input yields
// an empty ErrorBody, never an error.
func ParseErrorBody(body []byte) ErrorBody {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return ErrorBody{}
	}
	return ErrorBody{
		Code:    stringField(raw, "code"),
		Message: stringField(raw, "message"),
		Error:   stringField(raw, "error"),
	}
}

func stringField(raw map[string]any, name string) string {
	s, _ := raw[name].(string)
	return s
}

// IsAccountInactive reports whether the body marks the account as deactivated.
func (b ErrorBody) IsAccountInactive() bool {
	if strings.EqualFold(b.Code, CodeAccountInactive) {
		return true
	}
	return containsFold(b.Message, "inactive") || containsFold(b.Error, "inactive")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
