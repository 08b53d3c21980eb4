package domain

import (
	"time"
)

// Message represents one user message appended to a session's log. The log is
// append-only; messages are never edited or removed.
type Message struct {
	ID               string         `json:"id" bson:"id"`
	Text             string         `json:"text" bson:"text"`
	Timestamp        time.Time      `json:"timestamp" bson:"timestamp"`
	Sender           string         `json:"sender" bson:"sender"`
	Intent           string         `json:"intent,omitempty" bson:"intent,omitempty"`
	Topic            string         `json:"topic,omitempty" bson:"topic,omitempty"`
	Attachment       *Attachment    `json:"attachment,omitempty" bson:"attachment,omitempty"`
	DetectedCategory string         `json:"detected_category,omitempty" bson:"detected_category,omitempty"`
	ExtractedData    map[string]any `json:"extracted_data,omitempty" bson:"extracted_data,omitempty"`
}

// Attachment is a document reference supplied with an inbound message
type Attachment struct {
	URL  string `json:"url" bson:"url" validate:"required"`
	Type string `json:"type" bson:"type"`
	Name string `json:"name" bson:"name"`
}
