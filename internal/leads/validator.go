package leads

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Form field names, shared by the validator and the intake handler.
const (
	FieldFullName    = "fullName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldNotes       = "notes"
	FieldIGUserID    = "igUserId"
	FieldIGUsername  = "igUsername"
	FieldIGCommentID = "igCommentId"
	FieldIGMediaID   = "igMediaId"
	FieldCampaign    = "campaign"
)

// MaxNotesLength bounds the free-form notes field, in characters.
const MaxNotesLength = 500

const maxEmailLength = 254

// FieldErrors maps a form field name to the first rule it violated.
type FieldErrors map[string]string

// ValidateIntake checks a raw submission field by field. On success it
// returns the normalized data and a nil map; on failure the data is nil.
func ValidateIntake(form IntakeForm) (*IntakeData, FieldErrors) {
	errs := FieldErrors{}

	fullName := strings.TrimSpace(form.FullName)
	if fullName == "" {
		errs[FieldFullName] = "Full name is required"
	}

	email := strings.TrimSpace(form.Email)
	if !ValidEmail(email) {
		errs[FieldEmail] = "Valid email is required"
	}

	notes := optional(form.Notes)
	if notes != nil && utf8.RuneCountInString(*notes) > MaxNotesLength {
		errs[FieldNotes] = "Notes must be 500 characters or fewer"
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &IntakeData{
		FullName:    fullName,
		Email:       email,
		Phone:       optional(form.Phone),
		Notes:       notes,
		IGUserID:    optional(form.IGUserID),
		IGUsername:  optional(form.IGUsername),
		IGCommentID: optional(form.IGCommentID),
		IGMediaID:   optional(form.IGMediaID),
		Campaign:    optional(form.Campaign),
		Source:      SourceInstagramComment,
	}, nil
}

// ValidEmail reports whether s is a bare RFC 5322 addr-spec (no display
// name) whose domain is dotted and ends in an alphabetic TLD.
func ValidEmail(s string) bool {
	if s == "" || len(s) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}

	at := strings.LastIndexByte(s, '@')
	local, domain := s[:at], s[at+1:]
	// net/mail tolerates stray dots in the local part.
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}

	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 {
		return false
	}
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
