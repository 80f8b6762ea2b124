// Package response formats the JSON envelope handed to collaborators:
//
//	{"status": <status>, "content": <content>}
package response

import (
	"encoding/json"
	"fmt"
)

// Common status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusBusy  = "busy"
)

// Envelope is the status/content pair returned to collaborators.
type Envelope struct {
	Status  any `json:"status"`
	Content any `json:"content"`
}

// New builds an envelope.
func New(status, content any) Envelope {
	return Envelope{Status: status, Content: content}
}

// Marshal encodes an envelope for status and content as JSON text.
func Marshal(status, content any) (string, error) {
	data, err := json.Marshal(New(status, content))
	if err != nil {
		return "", fmt.Errorf("encoding response: %w", err)
	}
	return string(data), nil
}
