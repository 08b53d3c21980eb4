package domain

import "time"

// ChatRequest is the inbound message envelope from a channel adapter
type ChatRequest struct {
	UserID      string       `json:"userId" validate:"required"`
	SessionID   string       `json:"sessionId" validate:"required"`
	Message     string       `json:"message"`
	CreatedAt   time.Time    `json:"createdAt"`
	Attachments []Attachment `json:"attachments" validate:"omitempty,dive"`
}

// ChatResponse is the outbound reply envelope. SessionID may differ from the
// request when the conversation rotated to a new session.
type ChatResponse struct {
	MessageID   string       `json:"messageId"`
	Message     string       `json:"message"`
	SessionID   string       `json:"sessionId"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
}
