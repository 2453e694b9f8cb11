package domain

import (
	"fmt"
	"net/url"
)

// Message is an outbound email
type Message struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file attached to a Message
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// SigningLink builds the URL a recipient follows to open their fields
func SigningLink(clientURL, instanceID, recipientID string) string {
	return fmt.Sprintf("%s/signing/%s?recipient=%s", clientURL, url.PathEscape(instanceID), url.QueryEscape(recipientID))
}
