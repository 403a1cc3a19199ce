package model

import "time"

// Template is a content template that users spend credits on.
type Template struct {
	ID          string    `json:"id"`
	Theme       string    `json:"theme"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	Ratio       string    `json:"ratio,omitempty"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
