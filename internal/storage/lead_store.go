package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/leadgate-io/leadgate/internal/config"
	"github.com/leadgate-io/leadgate/internal/lead"
)

// lib/pq error code for unique_violation.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const uniqueViolation = "23505"

// Compile-time interface assertion: LeadStore implements the domain store.
var _ lead.Store = (*LeadStore)(nil)

// LeadStore implements lead.Store with a PostgreSQL backend.
//
// The duplicate check (ExistsAny) and the insert (Create) are intentionally
// separate round-trips, mirroring the ingestion protocol: the check is
// best-effort and the schema carries no unique constraints on the
// identifying fields. A unique_violation on insert is still mapped to
// lead.ErrDuplicateLead as a backstop for operators who add such
// constraints out of band.
type LeadStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewLeadStore creates a PostgreSQL-backed lead store.
// Returns ErrNoDatabaseConnection if conn is nil.
func NewLeadStore(conn *Connection) (*LeadStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &LeadStore{
		conn: conn,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}, nil
}

// Create persists a RawLead and returns it with the store-assigned identifier
// and creation timestamp filled in.
func (s *LeadStore) Create(ctx context.Context, record *lead.RawLead) (*lead.RawLead, error) {
	query := `
		INSERT INTO raw_leads (correlation_id, name, company, website, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	stored := *record

	err := s.conn.QueryRowContext(
		ctx,
		query,
		record.CorrelationID,
		record.Name,
		record.Company,
		record.Website,
		record.Email,
		record.Phone,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, lead.ErrDuplicateLead
		}

		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}

	return &stored, nil
}

// ExistsAny reports whether any stored lead matches at least one of the three
// identifying fields exactly. Single round-trip, case-sensitive comparison.
func (s *LeadStore) ExistsAny(ctx context.Context, key lead.DuplicateKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM raw_leads
			WHERE email = $1 OR company = $2 OR website = $3
		)
	`

	var exists bool

	err := s.conn.QueryRowContext(ctx, query, key.Email, key.Company, key.Website).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate lead: %w", err)
	}

	return exists, nil
}

// Find returns a page of leads matching the filter, newest identifier first,
// together with the total match count.
func (s *LeadStore) Find(
	ctx context.Context,
	filter lead.Filter,
	page lead.Page,
) ([]lead.RawLead, int64, error) {
	page = page.Normalize()

	total, err := s.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildLeadFilter(filter)

	query := `
		SELECT id, correlation_id, name, company, website, email, phone, created_at
		FROM raw_leads
	` + where + `
		ORDER BY id DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	args = append(args, page.Size, page.Offset())

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leads: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	leads := make([]lead.RawLead, 0, page.Size)

	for rows.Next() {
		var l lead.RawLead

		err := rows.Scan(
			&l.ID,
			&l.CorrelationID,
			&l.Name,
			&l.Company,
			&l.Website,
			&l.Email,
			&l.Phone,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan lead row: %w", err)
		}

		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating lead rows: %w", err)
	}

	return leads, total, nil
}

// Count returns the number of leads matching the filter.
func (s *LeadStore) Count(ctx context.Context, filter lead.Filter) (int64, error) {
	where, args := buildLeadFilter(filter)

	var count int64

	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_leads"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}

	return count, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *LeadStore) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// buildLeadFilter renders the WHERE clause and ordered args for a filter.
//
// The free-text term is matched case-insensitively as a substring against
// email, name, company and website (OR). From/To bound created_at
// inclusively.
func buildLeadFilter(filter lead.Filter) (string, []any) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if term := strings.TrimSpace(filter.Query); term != "" {
		args = append(args, "%"+escapeLikePattern(term)+"%")
		idx := strconv.Itoa(len(args))
		conditions = append(conditions,
			"(email ILIKE $"+idx+" OR name ILIKE $"+idx+" OR company ILIKE $"+idx+" OR website ILIKE $"+idx+")")
	}

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(len(args)))
	}

	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, "created_at <= $"+strconv.Itoa(len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLikePattern escapes LIKE metacharacters in user-supplied search terms.
func escapeLikePattern(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, "%", `\%`)
	term = strings.ReplaceAll(term, "_", `\_`)

	return term
}
