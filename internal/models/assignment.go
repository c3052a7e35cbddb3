package models

// AssignmentStatus records whether a participant has paid back their share.
type AssignmentStatus string

const (
	StatusUnpaid AssignmentStatus = "unpaid"
	StatusPaid   AssignmentStatus = "paid"
)

// Valid reports whether s is a known status.
func (s AssignmentStatus) Valid() bool {
	return s == StatusUnpaid || s == StatusPaid
}

// Assignment (a responsibility mapping) says that UserID shares the cost
// of line item LineID. All assignments with the same LineID together form
// the set of participants splitting that item.
type Assignment struct {
	// MappingID is the unique identifier, allocated from the "assignments" sequence.
	MappingID int64

	LineID int64
	UserID ParticipantID
	Status AssignmentStatus
}
