package models

import "time"

// Folder is a personal, user-scoped grouping of ciphers. Sharing a folder
// moves its ciphers into a new team collection and deletes the folder.
type Folder struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}
