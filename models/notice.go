package models

import "time"

const (
	NoticeDefault     = "default"
	NoticeDestructive = "destructive"
)

// Notice is a user-visible toast.
type Notice struct {
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     string    `json:"variant"`
	CreatedAt   time.Time `json:"created_at"`
}
