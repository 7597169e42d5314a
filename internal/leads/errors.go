package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidLead is returned when a store is handed data that skipped validation
	ErrInvalidLead = errors.New("leads: full name and email are required")
)
