package lead

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by Store implementations.
var (
	// ErrDuplicateLead is returned by Create when the store itself rejects the
	// row as a duplicate (constraint violation). The primary duplicate policy
	// runs through ExistsAny before Create; this is the store-level backstop.
	ErrDuplicateLead = errors.New("lead already exists")
)

// Pagination limits for the read-side listing contract.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

type (
	// DuplicateKey carries the three identifying fields of the duplicate
	// policy. A submission is a duplicate if ANY one of the three matches an
	// existing lead exactly (case-sensitive, as persisted). This is an OR
	// across independent fields, not a composite key.
	DuplicateKey struct {
		Email   string
		Company string
		Website string
	}

	// Filter narrows read-side queries.
	//
	// Query is a free-text term matched (substring, case-insensitive) against
	// email, name, company and website - any match includes the row. From/To
	// bound the creation timestamp inclusively; either side may be nil.
	Filter struct {
		Query string
		From  *time.Time
		To    *time.Time
	}

	// Page is a 1-based page request. Zero values mean "first page, default
	// size"; sizes above MaxPageSize are clamped.
	Page struct {
		Number int
		Size   int
	}

	// Store defines durable persistence for accepted lead records.
	//
	// The domain package defines this interface to specify what it needs for
	// persistence without depending on concrete implementations. The
	// PostgreSQL implementation lives in internal/storage.
	Store interface {
		// Create persists a RawLead and returns it with its store-assigned
		// identifier and creation timestamp filled in.
		Create(ctx context.Context, record *RawLead) (*RawLead, error)

		// ExistsAny reports whether any stored lead matches at least one of
		// the three identifying fields exactly.
		//
		// This check runs BEFORE Create in the ingestion sequence and is
		// best-effort: two concurrent submissions sharing an identifying
		// field can both pass it and both be stored.
		ExistsAny(ctx context.Context, key DuplicateKey) (bool, error)

		// Find returns a page of leads matching the filter, ordered by
		// identifier descending, together with the total match count.
		Find(ctx context.Context, filter Filter, page Page) ([]RawLead, int64, error)

		// Count returns the number of leads matching the filter.
		Count(ctx context.Context, filter Filter) (int64, error)

		// HealthCheck verifies the backend is reachable.
		HealthCheck(ctx context.Context) error
	}
)

// DuplicateKeyOf extracts the identifying fields of a submission.
func DuplicateKeyOf(s *Submission) DuplicateKey {
	return DuplicateKey{
		Email:   s.Email,
		Company: s.Company,
		Website: s.Website,
	}
}

// Normalize clamps a page request into the supported range.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}

	if p.Size < 1 {
		p.Size = DefaultPageSize
	}

	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}

	return p
}

// Offset returns the SQL offset for a normalized page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
