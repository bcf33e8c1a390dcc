package models

import "time"

// Page is one content page in the site database. The coordinator never
// interprets page bodies; this model exists for the content API and so the
// backup manager has a real database to snapshot.
type Page struct {
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
