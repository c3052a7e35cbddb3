package models

import "fmt"

// ParticipantID identifies a user in every ledger record.
// The calculator never resolves it to a name.
type ParticipantID int64

// User represents a participant of the ledger.
type User struct {
	// UserID is the unique identifier, allocated from the "users" sequence.
	UserID ParticipantID

	// FullName is the display name shown in balance summaries.
	FullName string

	// Email is optional contact information.
	Email string
}

// DisplayName returns the user's name, or a placeholder built from the id
// when the user is unknown or unnamed.
func DisplayName(names map[ParticipantID]string, id ParticipantID) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("User ID %d", id)
}
