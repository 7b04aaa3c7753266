package models

import "encoding/json"

type EmailAddress struct {
	EmailAddress    string `json:"emailAddress"`
	DisplayableName string `json:"displayableName,omitempty"`
}

type EmailBody struct {
	Content string `json:"content"`
}

type EmailMessage struct {
	To       []EmailAddress `json:"to"`
	From     EmailAddress   `json:"from"`
	Subject  string         `json:"subject"`
	HTMLBody *EmailBody     `json:"htmlBody,omitempty"`
}

type SendEmailRequest struct {
	Data []EmailMessage `json:"data"`
}

type SendEmailMeta struct {
	Status int `json:"status"`
}

type SendEmailFailError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// SendEmailFailure is one rejected entry in a send-email response. Key echoes
// the offending request item as the API returned it.
type SendEmailFailure struct {
	Key    json.RawMessage      `json:"key"`
	Errors []SendEmailFailError `json:"errors"`
}

type SendEmailResponse struct {
	Meta SendEmailMeta      `json:"meta"`
	Data []json.RawMessage  `json:"data"`
	Fail []SendEmailFailure `json:"fail"`
}
