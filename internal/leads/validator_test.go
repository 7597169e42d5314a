package leads

import (
	"strings"
	"testing"
)

func TestValidateIntake(t *testing.T) {
	tests := []struct {
		name       string
		form       IntakeForm
		wantFields []string
	}{
		{
			name: "minimal valid",
			form: IntakeForm{FullName: "Jane Roe", Email: "jane@example.com"},
		},
		{
			name:       "empty name",
			form:       IntakeForm{FullName: "   ", Email: "jane@example.com"},
			wantFields: []string{FieldFullName},
		},
		{
			name:       "bad email",
			form:       IntakeForm{FullName: "Jane", Email: "jane@"},
			wantFields: []string{FieldEmail},
		},
		{
			name:       "both missing",
			form:       IntakeForm{},
			wantFields: []string{FieldFullName, FieldEmail},
		},
		{
			name:       "notes too long",
			form:       IntakeForm{FullName: "Jane", Email: "jane@example.com", Notes: strings.Repeat("x", MaxNotesLength+1)},
			wantFields: []string{FieldNotes},
		},
		{
			name: "notes at limit",
			form: IntakeForm{FullName: "Jane", Email: "jane@example.com", Notes: strings.Repeat("é", MaxNotesLength)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, errs := ValidateIntake(tt.form)
			if len(tt.wantFields) == 0 {
				if errs != nil {
					t.Fatalf("expected no errors, got %v", errs)
				}
				if data == nil {
					t.Fatal("expected normalized data")
				}
				return
			}
			if data != nil {
				t.Fatalf("expected nil data on failure, got %+v", data)
			}
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("expected %d field errors, got %v", len(tt.wantFields), errs)
			}
			for _, field := range tt.wantFields {
				if errs[field] == "" {
					t.Errorf("expected error on %s, got %v", field, errs)
				}
			}
		})
	}
}

func TestValidateIntake_NormalizesOptionalFields(t *testing.T) {
	data, errs := ValidateIntake(IntakeForm{
		FullName:   " Jane Roe ",
		Email:      " jane@example.com ",
		Phone:      "   ",
		IGUsername: " alice ",
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if data.FullName != "Jane Roe" || data.Email != "jane@example.com" {
		t.Fatalf("expected trimmed values, got %q %q", data.FullName, data.Email)
	}
	if data.Phone != nil {
		t.Fatalf("blank phone should be absent, got %q", *data.Phone)
	}
	if Value(data.IGUsername) != "alice" {
		t.Fatalf("expected trimmed username, got %q", Value(data.IGUsername))
	}
	if data.Source != SourceInstagramComment {
		t.Fatalf("unexpected source %q", data.Source)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"jane@example.com",
		"jane.roe+promo@mail.example.co.uk",
		"o'brien@example.ie",
		"a_b-c@sub-domain.example.org",
	}
	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"jane@",
		"jane@example",
		"jane@example.c",
		"jane@@example.com",
		".jane@example.com",
		"jane..roe@example.com",
		"jane.@example.com",
		"jane roe@example.com",
		"jane@exa mple.com",
		"Jane Roe <jane@example.com>",
		"<jane@example.com>",
		"jane@[192.168.0.1]",
		"jane@example.c0m",
		"jane@example.com.",
		strings.Repeat("a", 250) + "@example.com",
	}

	for _, email := range valid {
		if !ValidEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}
	for _, email := range invalid {
		if ValidEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}
