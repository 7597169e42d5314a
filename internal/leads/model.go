package leads

import (
	"time"
)

// SourceInstagramComment classifies leads that came through the comment auto-reply.
const SourceInstagramComment = "instagram_comment"

// Lead is a captured prospect. Optional fields are nil when absent so they
// stay distinguishable from empty strings all the way to the database.
type Lead struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone"`
	Notes       *string   `json:"notes"`
	IGUserID    *string   `json:"ig_user_id"`
	IGUsername  *string   `json:"ig_username"`
	IGCommentID *string   `json:"ig_comment_id"`
	IGMediaID   *string   `json:"ig_media_id"`
	Campaign    *string   `json:"campaign"`
	Source      string    `json:"source"`
}

// IntakeForm is the raw signup form submission, keyed by the form field names.
type IntakeForm struct {
	FullName    string
	Email       string
	Phone       string
	Notes       string
	IGUserID    string
	IGUsername  string
	IGCommentID string
	IGMediaID   string
	Campaign    string
}

// IntakeData is a validated, normalized submission ready for the store.
type IntakeData struct {
	FullName    string
	Email       string
	Phone       *string
	Notes       *string
	IGUserID    *string
	IGUsername  *string
	IGCommentID *string
	IGMediaID   *string
	Campaign    *string
	Source      string
}

// Value returns the string behind an optional field, or "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
