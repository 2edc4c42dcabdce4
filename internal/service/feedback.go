package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/standardhub/internal/adapter/otel"
	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/logger"
	"github.com/Strob0t/standardhub/internal/port/broadcast"
	"github.com/Strob0t/standardhub/internal/port/database"
	"github.com/Strob0t/standardhub/internal/port/feedbackqueue"
	"github.com/Strob0t/standardhub/internal/port/messagequeue"
	"github.com/Strob0t/standardhub/internal/resilience"
)

// DefaultRiskLevels is the risk assigned at intake when the caller omits one.
var DefaultRiskLevels = map[feedback.TargetType]feedback.RiskLevel{
	feedback.TargetRuleExample:   feedback.RiskLow,
	feedback.TargetChecklistItem: feedback.RiskLow,
	feedback.TargetCodingRule:    feedback.RiskMedium,
	feedback.TargetClassTemplate: feedback.RiskMedium,
	feedback.TargetArchUnitTest:  feedback.RiskHigh,
}

// FeedbackService accepts feedback, applies review actions and merges
// approved items into the catalogue.
type FeedbackService struct {
	store       database.Store
	regs        feedbackqueue.Registries
	defaultRisk map[feedback.TargetType]feedback.RiskLevel
	now         func() time.Time

	queue       messagequeue.Queue
	breaker     *resilience.Breaker
	broadcaster broadcast.Broadcaster
	metrics     *cfotel.Metrics
	catalog     *CatalogService
}

// NewFeedbackService creates a FeedbackService. defaultRisk entries override
// DefaultRiskLevels per target type; nil keeps the built-in defaults.
func NewFeedbackService(store database.Store, regs feedbackqueue.Registries, defaultRisk map[feedback.TargetType]feedback.RiskLevel) *FeedbackService {
	risks := make(map[feedback.TargetType]feedback.RiskLevel, len(DefaultRiskLevels))
	for tt, r := range DefaultRiskLevels {
		risks[tt] = r
	}
	for tt, r := range defaultRisk {
		risks[tt] = r
	}
	return &FeedbackService{
		store:       store,
		regs:        regs,
		defaultRisk: risks,
		now:         time.Now,
	}
}

// SetQueue enables event publishing. A nil breaker publishes unguarded.
func (s *FeedbackService) SetQueue(q messagequeue.Queue, b *resilience.Breaker) {
	s.queue = q
	s.breaker = b
}

// SetBroadcaster enables pushing feedback events to connected live clients.
func (s *FeedbackService) SetBroadcaster(b broadcast.Broadcaster) {
	s.broadcaster = b
}

// SetMetrics sets the OTEL metric instruments.
func (s *FeedbackService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// SetCatalog sets the catalogue read service whose cache is invalidated after merges.
func (s *FeedbackService) SetCatalog(c *CatalogService) {
	s.catalog = c
}

// Create runs intake validation and persists a PENDING item.
func (s *FeedbackService) Create(ctx context.Context, cmd feedback.CreateCommand) (*feedback.Item, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.RiskLevel == "" {
		cmd.RiskLevel = s.defaultRisk[cmd.TargetType]
	}

	v, err := s.regs.Payload.Resolve(cmd.TargetType)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(ctx, s.store, cmd); err != nil {
		if s.metrics != nil {
			s.metrics.FeedbackRejected.Add(ctx, 1, metric.WithAttributes(
				attribute.String("target_type", string(cmd.TargetType)),
			))
		}
		return nil, err
	}

	it, err := feedback.ForNew(cmd.TargetType, cmd.TargetID, cmd.FeedbackType, cmd.Payload, cmd.RiskLevel, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateFeedback(ctx, it); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	slog.InfoContext(ctx, "feedback created",
		"feedback_id", it.ID,
		"target_type", it.TargetType,
		"feedback_type", it.FeedbackType,
		"risk_level", it.RiskLevel,
	)
	if s.metrics != nil {
		s.metrics.FeedbackCreated.Add(ctx, 1, metric.WithAttributes(
			attribute.String("target_type", string(it.TargetType)),
			attribute.String("risk_level", string(it.RiskLevel)),
		))
	}
	s.publish(ctx, messagequeue.SubjectFeedbackCreated, it, "", "")
	return it, nil
}

// Process applies a review action. Reaching MERGED merges the item in the
// same transaction.
func (s *FeedbackService) Process(ctx context.Context, cmd feedback.ProcessCommand) (*feedback.Item, error) {
	if !cmd.Action.IsReview() {
		return nil, fmt.Errorf("unknown action %q: %w", cmd.Action, domain.ErrValidation)
	}
	return s.apply(ctx, "process", cmd.FeedbackID, func(*feedback.Item) (feedback.Action, string) {
		return cmd.Action, cmd.ReviewNotes
	})
}

// Merge merges an item resting in a mergeable state. A second merge of the
// same item is an illegal transition.
func (s *FeedbackService) Merge(ctx context.Context, id int64) (*feedback.Item, error) {
	return s.apply(ctx, "merge", id, func(*feedback.Item) (feedback.Action, string) {
		return feedback.ActionMerge, ""
	})
}

// Reject rejects an item at its current review stage: LLM_REJECT while
// PENDING, HUMAN_REJECT once LLM-approved.
func (s *FeedbackService) Reject(ctx context.Context, id int64, notes string) (*feedback.Item, error) {
	return s.apply(ctx, "reject", id, func(it *feedback.Item) (feedback.Action, string) {
		if it.Status == feedback.StatusLLMApproved {
			return feedback.ActionHumanReject, notes
		}
		return feedback.ActionLLMReject, notes
	})
}

// Get returns one item.
func (s *FeedbackService) Get(ctx context.Context, id int64) (*feedback.Item, error) {
	return s.load(ctx, s.store, id)
}

// List returns items matching filter.
func (s *FeedbackService) List(ctx context.Context, filter feedback.ListFilter) ([]feedback.Item, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	items, err := s.store.ListFeedback(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// Pending lists PENDING items, oldest first.
func (s *FeedbackService) Pending(ctx context.Context, afterID int64, limit int) ([]feedback.Item, error) {
	return s.List(ctx, feedback.ListFilter{
		Status:      feedback.StatusPending,
		AfterID:     afterID,
		Limit:       limit,
		OldestFirst: true,
	})
}

// AwaitingHumanReview lists LLM-approved items whose risk requires a human.
func (s *FeedbackService) AwaitingHumanReview(ctx context.Context, afterID int64, limit int) ([]feedback.Item, error) {
	return s.List(ctx, feedback.ListFilter{
		HumanReview: true,
		AfterID:     afterID,
		Limit:       limit,
		OldestFirst: true,
	})
}

func (s *FeedbackService) load(ctx context.Context, store database.FeedbackStore, id int64) (*feedback.Item, error) {
	it, err := store.GetFeedback(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &feedback.NotFoundError{FeedbackID: id}
		}
		return nil, fmt.Errorf("get feedback %d: %w", id, err)
	}
	return it, nil
}

// apply loads the item, picks the action and commits the resulting
// transition. The stored item is untouched unless the whole transition
// commits.
func (s *FeedbackService) apply(ctx context.Context, op string, id int64, choose func(*feedback.Item) (feedback.Action, string)) (*feedback.Item, error) {
	ctx, span := cfotel.StartFeedbackSpan(ctx, op, id)
	defer span.End()

	it, err := s.load(ctx, s.store, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	from := it.Status
	action, notes := choose(it)
	to, err := it.Apply(action, notes, s.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("feedback.action", string(action)),
		attribute.String("feedback.from", string(from)),
		attribute.String("feedback.to", string(to)),
	)

	if to == feedback.StatusMerged {
		err = s.merge(ctx, it)
	} else if err = s.store.UpdateFeedback(ctx, it); err != nil {
		err = fmt.Errorf("update feedback %d: %w", id, err)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "feedback transitioned",
		"feedback_id", it.ID,
		"action", action,
		"from", from,
		"to", to,
	)
	if s.metrics != nil {
		s.metrics.Transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", string(action)),
			attribute.String("to", string(to)),
		))
	}

	s.publish(ctx, messagequeue.SubjectFeedbackTransitioned, it, action, from)
	if to == feedback.StatusMerged {
		s.publish(ctx, messagequeue.SubjectFeedbackMerged, it, action, from)
	}
	return it, nil
}

// merge runs Stage-2 validation, the strategy and the MERGED write in one
// transaction.
func (s *FeedbackService) merge(ctx context.Context, it *feedback.Item) error {
	ctx, span := cfotel.StartMergeSpan(ctx, it.ID, string(it.TargetType), string(it.FeedbackType))
	defer span.End()
	start := time.Now()

	validator, err := s.regs.Merge.Resolve(it.TargetType)
	if err != nil {
		return err
	}
	strategy, err := s.regs.Strategy.Resolve(it.TargetType)
	if err != nil {
		return err
	}

	staged := *it
	err = s.store.InTx(ctx, func(tx database.Store) error {
		if err := validator.Validate(ctx, tx, &staged); err != nil {
			return err
		}
		targetID, err := strategy.Merge(ctx, tx, &staged)
		if err != nil {
			return err
		}
		staged.RecordTarget(targetID)
		if err := tx.UpdateFeedback(ctx, &staged); err != nil {
			return fmt.Errorf("update feedback %d: %w", staged.ID, err)
		}
		return nil
	})

	attrs := metric.WithAttributes(
		attribute.String("target_type", string(it.TargetType)),
		attribute.String("feedback_type", string(it.FeedbackType)),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "feedback merge failed",
			"feedback_id", it.ID,
			"target_type", it.TargetType,
			"feedback_type", it.FeedbackType,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.MergeFailures.Add(ctx, 1, attrs)
		}
		return err
	}

	*it = staged
	span.SetAttributes(attribute.Int64("feedback.target_id", *it.TargetID))
	if s.metrics != nil {
		s.metrics.Merges.Add(ctx, 1, attrs)
		s.metrics.MergeDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if s.catalog != nil {
		s.catalog.Invalidate(ctx, it.TargetType, *it.TargetID)
	}
	return nil
}

// publish emits a feedback event after a commit to live clients and the
// queue. Publishing is best effort; failures are logged and never undo the
// committed change.
func (s *FeedbackService) publish(ctx context.Context, subject string, it *feedback.Item, action feedback.Action, from feedback.Status) {
	if s.queue == nil && s.broadcaster == nil {
		return
	}

	event := messagequeue.FeedbackEventPayload{
		EventID:      uuid.NewString(),
		FeedbackID:   it.ID,
		TargetType:   string(it.TargetType),
		TargetID:     it.TargetID,
		FeedbackType: string(it.FeedbackType),
		RiskLevel:    string(it.RiskLevel),
		Action:       string(action),
		From:         string(from),
		To:           string(it.Status),
		RequestID:    logger.RequestID(ctx),
		OccurredAt:   s.now().UTC(),
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(ctx, subject, event)
	}
	if s.queue == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "marshal feedback event", "subject", subject, "error", err)
		return
	}

	send := func() error { return s.queue.Publish(ctx, subject, data) }
	if s.breaker != nil {
		err = s.breaker.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		slog.WarnContext(ctx, "feedback event publish failed", "subject", subject, "feedback_id", it.ID, "error", err)
	}
}
