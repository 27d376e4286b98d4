package mcp

import (
	"encoding/json"
	"regexp"
)

var emailPattern = regexp.MustCompile(`([A-Za-z0-9._%+\-])[A-Za-z0-9._%+\-]*@([A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)

// redactEmails masks the local part of every email address in raw.
func redactEmails(raw string) string {
	return emailPattern.ReplaceAllString(raw, "$1***@$2")
}

// redactHookPayload renders a redacted JSON string for hook logging.
// Share lists carry recipient addresses, so they are masked before logging.
func redactHookPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return redactEmails(string(data))
}
