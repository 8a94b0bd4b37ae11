// Package lead provides the lead ingestion domain model and the write-path
// orchestration protocol.
//
// The package owns three shapes:
//   - Submission: the untrusted inbound record, with unknown JSON fields
//     preserved for forward compatibility
//   - RawLead: the durably persisted form of an accepted submission
//   - Event: the broker envelope (submission + correlation id)
//
// Persistence and event delivery are expressed as interfaces (Store,
// Publisher) so high-level ingestion logic does not depend on concrete
// infrastructure. Concrete implementations live in internal/storage and
// internal/publisher.
package lead

import (
	"encoding/json"
	"time"
)

// Known submission field names, in validation order.
const (
	FieldName    = "name"
	FieldCompany = "company"
	FieldWebsite = "website"
	FieldEmail   = "email"
	FieldPhone   = "phone"
)

type (
	// Submission is an untrusted lead record as received over HTTP.
	//
	// All five named fields are required strings. Unknown fields are not an
	// error: they are captured in Extra during unmarshalling and written back
	// verbatim when the submission is serialized into an Event, so producers
	// can extend the schema without breaking this service.
	Submission struct {
		Name    string
		Company string
		Website string
		Email   string
		Phone   string

		// Extra holds unrecognized JSON fields, keyed by their original name.
		// Never interpreted, only passed through to the event envelope.
		Extra map[string]json.RawMessage
	}

	// RawLead is the persisted form of an accepted submission.
	//
	// Owned exclusively by the Lead Store. Immutable once created: there is no
	// update path, and this subsystem never deletes rows.
	RawLead struct {
		ID            int64     `json:"id"`
		CorrelationID string    `json:"correlationId"`
		Name          string    `json:"name"`
		Company       string    `json:"company"`
		Website       string    `json:"website"`
		Email         string    `json:"email"`
		Phone         string    `json:"phone"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	// Event is the broker envelope for an accepted submission.
	//
	// The serialized value is the submission (including Extra fields) plus the
	// correlation id; the correlation id additionally travels as a message
	// header so consumers can trace without deserializing the value.
	Event struct {
		Submission    *Submission
		CorrelationID string
	}
)

// submissionJSON mirrors the known Submission fields for (un)marshalling.
type submissionJSON struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Website string `json:"website"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// knownFields is the set of JSON keys mapped to named Submission fields.
var knownFields = map[string]bool{
	FieldName:    true,
	FieldCompany: true,
	FieldWebsite: true,
	FieldEmail:   true,
	FieldPhone:   true,
}

// UnmarshalJSON decodes a submission, splitting known fields from extras.
//
// A known field whose value is not a JSON string is left empty (the validator
// reports it as missing); its raw value is still preserved in Extra so the
// envelope carries exactly what the caller sent.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Submission{}

	for key, value := range raw {
		if !knownFields[key] {
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}

			s.Extra[key] = value

			continue
		}

		var str string
		if err := json.Unmarshal(value, &str); err != nil {
			// Known key with a non-string value: keep the raw value so it
			// still round-trips through the envelope.
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}

			s.Extra[key] = value

			continue
		}

		switch key {
		case FieldName:
			s.Name = str
		case FieldCompany:
			s.Company = str
		case FieldWebsite:
			s.Website = str
		case FieldEmail:
			s.Email = str
		case FieldPhone:
			s.Phone = str
		}
	}

	return nil
}

// MarshalJSON encodes the submission with its extra fields inlined.
func (s Submission) MarshalJSON() ([]byte, error) {
	merged, err := s.asMap()
	if err != nil {
		return nil, err
	}

	return json.Marshal(merged)
}

// asMap flattens known fields and extras into a single JSON object map.
func (s Submission) asMap() (map[string]json.RawMessage, error) {
	known, err := json.Marshal(submissionJSON{
		Name:    s.Name,
		Company: s.Company,
		Website: s.Website,
		Email:   s.Email,
		Phone:   s.Phone,
	})
	if err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(s.Extra)+5)
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}

	for key, value := range s.Extra {
		// Known fields win over duplicates captured in Extra.
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}

	return merged, nil
}

// MarshalJSON encodes the event as the submission object plus correlationId.
func (e Event) MarshalJSON() ([]byte, error) {
	merged, err := e.Submission.asMap()
	if err != nil {
		return nil, err
	}

	correlationID, err := json.Marshal(e.CorrelationID)
	if err != nil {
		return nil, err
	}

	merged["correlationId"] = correlationID

	return json.Marshal(merged)
}
