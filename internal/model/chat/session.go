package chat

import "time"

// Info is the public metadata of a consultation session.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transcript is the document written on export and read back on import.
type Transcript struct {
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	History   []Message `json:"history" yaml:"history"`
}
