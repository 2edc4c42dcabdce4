package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

const feedbackColumns = `id, target_type, target_id, feedback_type, payload, risk_level, status,
	COALESCE(review_notes, ''), version, created_at, updated_at`

func scanFeedback(row scannable) (feedback.Item, error) {
	var it feedback.Item
	err := row.Scan(&it.ID, &it.TargetType, &it.TargetID, &it.FeedbackType, &it.Payload,
		&it.RiskLevel, &it.Status, &it.ReviewNotes, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// CreateFeedback inserts it and fills in ID, Version and timestamps.
func (s *Store) CreateFeedback(ctx context.Context, it *feedback.Item) error {
	const q = `
		INSERT INTO feedback_queue (target_type, target_id, feedback_type, payload, risk_level, status, review_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at`

	err := s.q.QueryRow(ctx, q,
		string(it.TargetType), it.TargetID, string(it.FeedbackType), []byte(it.Payload),
		string(it.RiskLevel), string(it.Status), nullIfEmpty(it.ReviewNotes),
	).Scan(&it.ID, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return writeErr(err, "create feedback")
	}
	return nil
}

func (s *Store) GetFeedback(ctx context.Context, id int64) (*feedback.Item, error) {
	row := s.q.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback_queue WHERE id = $1`, id)
	it, err := scanFeedback(row)
	if err != nil {
		return nil, notFoundWrap(err, "get feedback %d", id)
	}
	return &it, nil
}

// ListFeedback pages by id: newest first by default, oldest first when
// filter.OldestFirst is set. AfterID is the last id of the previous page.
func (s *Store) ListFeedback(ctx context.Context, f feedback.ListFilter) ([]feedback.Item, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.TargetType != "" {
		add("target_type = $%d", string(f.TargetType))
	}
	if f.RiskLevel != "" {
		add("risk_level = $%d", string(f.RiskLevel))
	}
	if f.FeedbackType != "" {
		add("feedback_type = $%d", string(f.FeedbackType))
	}
	if f.HumanReview {
		where = append(where, fmt.Sprintf("status = '%s' AND risk_level IN ('%s', '%s')",
			feedback.StatusLLMApproved, feedback.RiskMedium, feedback.RiskHigh))
	}

	order := "DESC"
	if f.OldestFirst {
		order = "ASC"
		if f.AfterID > 0 {
			add("id > $%d", f.AfterID)
		}
	} else if f.AfterID > 0 {
		add("id < $%d", f.AfterID)
	}

	q := `SELECT ` + feedbackColumns + ` FROM feedback_queue`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id ` + order
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items := []feedback.Item{}
	for rows.Next() {
		it, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateFeedback writes status, notes and target id if the stored version
// still matches, then bumps it.Version.
func (s *Store) UpdateFeedback(ctx context.Context, it *feedback.Item) error {
	const q = `
		UPDATE feedback_queue
		SET status = $2, review_notes = $3, target_id = $4, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $5
		RETURNING version, updated_at`

	row := s.q.QueryRow(ctx, q, it.ID, string(it.Status), nullIfEmpty(it.ReviewNotes), it.TargetID, it.Version)
	if err := versionedUpdate(row, &it.Version, &it.UpdatedAt); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("update feedback %d: %w", it.ID, err)
		}
		return writeErr(err, "update feedback %d", it.ID)
	}
	return nil
}
