package lead

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/leadgate-io/leadgate/internal/config"
)

// Outcome identifies the terminal state of one ingestion attempt.
type Outcome int

// Terminal outcomes of the ingestion protocol, in protocol order.
const (
	// OutcomeAccepted: record persisted and delivered to the primary topic.
	OutcomeAccepted Outcome = iota

	// OutcomeInvalid: validation failed; nothing was minted, stored or published.
	OutcomeInvalid

	// OutcomeDuplicate: an existing lead matches an identifying field; no
	// store write, no publish.
	OutcomeDuplicate

	// OutcomeStoreFailed: persistence failed; no publish was attempted.
	OutcomeStoreFailed

	// OutcomePublisherUnavailable: no broker connection at publish time. The
	// record IS durably stored; nothing was published on either topic.
	OutcomePublisherUnavailable

	// OutcomePublishFailed: primary delivery failed after the store commit.
	// The record IS durably stored and the envelope was offered to the
	// dead-letter topic.
	OutcomePublishFailed
)

// Error reasons used for metrics labels.
const (
	ReasonValidation           = "validation"
	ReasonDuplicate            = "duplicate"
	ReasonStore                = "store"
	ReasonPublisherUnavailable = "publisher_unavailable"
	ReasonPublish              = "publish"
)

type (
	// Result is the outcome of a single ingestion attempt.
	//
	// CorrelationID is empty only for OutcomeInvalid: the id is minted after
	// validation succeeds and is carried through every downstream write.
	Result struct {
		Outcome       Outcome
		CorrelationID string
		Lead          *RawLead
		Violations    []Violation
		Err           error
	}

	// Recorder observes ingestion events for metrics. Implemented by
	// metrics.IngestMetrics; a no-op is substituted when nil is injected.
	Recorder interface {
		ObserveRequest()
		ObserveAccepted()
		ObserveError(reason string)
		ObservePublished(topic string)
	}

	// Ingestor composes validator, duplicate detection, store and publisher
	// into the single write-path protocol:
	//
	//	validate -> mint correlation id -> duplicate check -> persist ->
	//	publish primary (else dead-letter)
	//
	// The sequence is strictly sequential with no branch re-entry. The
	// duplicate check and the persist step are two independent store
	// round-trips, not one transaction: concurrent submissions sharing an
	// identifying field can both pass the check and both commit. That window
	// is accepted behavior, not something this type compensates for.
	//
	// Persist-then-publish is deliberate: a publish failure never loses data
	// (the row is already committed) and is never silently dropped (it is
	// dead-lettered or explicitly errored to the caller), at the cost of a
	// transient inconsistency window between store and stream.
	Ingestor struct {
		validator *Validator
		store     Store
		publisher Publisher
		metrics   Recorder
		logger    *slog.Logger

		primaryTopic    string
		deadLetterTopic string
	}

	// noopRecorder satisfies Recorder when no metrics sink is configured.
	noopRecorder struct{}
)

func (noopRecorder) ObserveRequest()         {}
func (noopRecorder) ObserveAccepted()        {}
func (noopRecorder) ObserveError(string)     {}
func (noopRecorder) ObservePublished(string) {}

// NewIngestor creates the write-path orchestrator.
//
// store and publisher are required; metrics may be nil (disables counters).
// primaryTopic and deadLetterTopic are only used for metrics labels and log
// fields - routing is owned by the publisher.
func NewIngestor(
	store Store,
	publisher Publisher,
	metrics Recorder,
	primaryTopic, deadLetterTopic string,
) *Ingestor {
	if metrics == nil {
		metrics = noopRecorder{}
	}

	return &Ingestor{
		validator: NewValidator(),
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
		primaryTopic:    primaryTopic,
		deadLetterTopic: deadLetterTopic,
	}
}

// Ingest runs the full ingestion protocol for one submission.
//
// Every call increments the request counter exactly once and reaches exactly
// one terminal outcome. The returned Result never carries a partial state:
// whenever Lead is non-nil the row is durably committed, regardless of the
// publish outcome.
func (i *Ingestor) Ingest(ctx context.Context, submission *Submission) *Result {
	i.metrics.ObserveRequest()

	// Step 1: validate. Terminal on failure - no correlation id is minted.
	if violations := i.validator.Validate(submission); violations != nil {
		i.metrics.ObserveError(ReasonValidation)

		return &Result{Outcome: OutcomeInvalid, Violations: violations}
	}

	// Step 2: mint the correlation id. Exactly one per submission that
	// passes validation; immutable from here on.
	correlationID := uuid.NewString()

	// Step 3: duplicate check. Best-effort, runs before the store write.
	found, err := i.store.ExistsAny(ctx, DuplicateKeyOf(submission))
	if err != nil {
		i.metrics.ObserveError(ReasonStore)
		i.logger.Error("Duplicate check failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		return &Result{Outcome: OutcomeStoreFailed, CorrelationID: correlationID, Err: err}
	}

	if found {
		i.metrics.ObserveError(ReasonDuplicate)
		i.logger.Info("Duplicate lead rejected",
			slog.String("correlation_id", correlationID),
		)

		return &Result{Outcome: OutcomeDuplicate, CorrelationID: correlationID}
	}

	// Step 4: persist. Terminal on failure - no publish is attempted,
	// because nothing was committed.
	stored, err := i.store.Create(ctx, &RawLead{
		CorrelationID: correlationID,
		Name:          submission.Name,
		Company:       submission.Company,
		Website:       submission.Website,
		Email:         submission.Email,
		Phone:         submission.Phone,
	})
	if err != nil {
		i.metrics.ObserveError(ReasonStore)
		i.logger.Error("Lead store write failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		return &Result{Outcome: OutcomeStoreFailed, CorrelationID: correlationID, Err: err}
	}

	event := &Event{Submission: submission, CorrelationID: correlationID}

	// Step 5: the broker connection is established once at startup; if it is
	// down the row stays committed but nothing is published on either topic.
	if !i.publisher.Connected() {
		i.metrics.ObserveError(ReasonPublisherUnavailable)
		i.logger.Warn("Publisher not ready, lead stored but not published",
			slog.String("correlation_id", correlationID),
			slog.Int64("lead_id", stored.ID),
		)

		return &Result{
			Outcome:       OutcomePublisherUnavailable,
			CorrelationID: correlationID,
			Lead:          stored,
		}
	}

	// Step 6: primary delivery, dead-letter on failure. The dead-letter
	// write is a side-channel signal, not a compensating transaction: the
	// caller is still told the operation failed.
	if err := i.publisher.Publish(ctx, event); err != nil {
		i.metrics.ObserveError(ReasonPublish)
		i.logger.Error("Primary publish failed, routing to dead-letter topic",
			slog.String("correlation_id", correlationID),
			slog.Int64("lead_id", stored.ID),
			slog.String("topic", i.primaryTopic),
			slog.String("error", err.Error()),
		)

		if dlqErr := i.publisher.PublishDeadLetter(ctx, event); dlqErr != nil {
			// Best-effort by contract: logged, never surfaced past the
			// already-failed primary result.
			i.logger.Error("Dead-letter publish failed",
				slog.String("correlation_id", correlationID),
				slog.String("topic", i.deadLetterTopic),
				slog.String("error", dlqErr.Error()),
			)
		} else {
			i.metrics.ObservePublished(i.deadLetterTopic)
		}

		return &Result{
			Outcome:       OutcomePublishFailed,
			CorrelationID: correlationID,
			Lead:          stored,
			Err:           err,
		}
	}

	i.metrics.ObserveAccepted()
	i.metrics.ObservePublished(i.primaryTopic)
	i.logger.Info("Lead accepted",
		slog.String("correlation_id", correlationID),
		slog.Int64("lead_id", stored.ID),
		slog.String("topic", i.primaryTopic),
	)

	return &Result{Outcome: OutcomeAccepted, CorrelationID: correlationID, Lead: stored}
}
