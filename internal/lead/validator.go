package lead

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// Violation describes a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violation messages. Kept as constants so tests and API responses agree.
const (
	msgRequired       = "is required"
	msgMalformedURI   = "must be a valid absolute URI"
	msgMalformedEmail = "must be a valid email address"
)

// violationListPrealloc matches the number of validated fields.
const violationListPrealloc = 5

// Validator performs shape validation of lead submissions.
//
// Validation is pure, total and deterministic: no I/O, no internal failure
// mode. Given the same submission it always produces the same ordered list of
// violations. Unknown fields carried in Submission.Extra are never inspected.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a submission against the required-field/shape contract.
//
// Returns nil for a valid submission, otherwise a non-empty list of
// violations in stable field order: name, company, website, email, phone.
//
// Rules:
//   - all five fields are required and must be non-blank
//   - website must parse as an absolute URI with a scheme and host
//   - email must parse per RFC 5322 address syntax
func (v *Validator) Validate(s *Submission) []Violation {
	violations := make([]Violation, 0, violationListPrealloc)

	if isBlank(s.Name) {
		violations = append(violations, Violation{Field: FieldName, Message: msgRequired})
	}

	if isBlank(s.Company) {
		violations = append(violations, Violation{Field: FieldCompany, Message: msgRequired})
	}

	switch {
	case isBlank(s.Website):
		violations = append(violations, Violation{Field: FieldWebsite, Message: msgRequired})
	case !isValidURI(s.Website):
		violations = append(violations, Violation{Field: FieldWebsite, Message: msgMalformedURI})
	}

	switch {
	case isBlank(s.Email):
		violations = append(violations, Violation{Field: FieldEmail, Message: msgRequired})
	case !isValidEmail(s.Email):
		violations = append(violations, Violation{Field: FieldEmail, Message: msgMalformedEmail})
	}

	if isBlank(s.Phone) {
		violations = append(violations, Violation{Field: FieldPhone, Message: msgRequired})
	}

	if len(violations) == 0 {
		return nil
	}

	return violations
}

// isBlank reports whether a required string field is missing.
func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// isValidURI reports whether the value is an absolute URI with scheme and host.
func isValidURI(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

// isValidEmail reports whether the value is a single RFC 5322 address.
// Display names ("A <a@x.org>") are rejected: the field must be the bare address.
func isValidEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}

	return addr.Address == value
}

// String renders a violation as "field: message" for logs.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}
