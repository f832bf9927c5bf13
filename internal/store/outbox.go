package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calebwray/tandem/internal/model"
)

type OutboxStore struct {
	db *sql.DB
}

func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func scanIntent(scanner interface{ Scan(...any) error }) (*model.SyncIntent, error) {
	var i model.SyncIntent
	var deliveredAt sql.NullTime

	err := scanner.Scan(
		&i.ID, &i.IntentKey, &i.LinkID, &i.TargetHouseholdID,
		&i.ChildFamilyMemberID, &i.PointsDelta, &i.Status, &i.Attempts,
		&i.LastError, &i.CreatedAt, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if deliveredAt.Valid {
		i.DeliveredAt = &deliveredAt.Time
	}
	return &i, nil
}

const intentCols = `id, intent_key, link_id, target_household_id, child_family_member_id, points_delta, status, attempts, last_error, created_at, delivered_at`

// Enqueue appends a pending sync intent with a fresh idempotency key.
func (s *OutboxStore) Enqueue(linkID, targetHouseholdID, childFamilyMemberID int64, pointsDelta int) (*model.SyncIntent, error) {
	result, err := s.db.Exec(
		`INSERT INTO sync_outbox (intent_key, link_id, target_household_id, child_family_member_id, points_delta)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), linkID, targetHouseholdID, childFamilyMemberID, pointsDelta,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue sync intent: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *OutboxStore) GetByID(id int64) (*model.SyncIntent, error) {
	row := s.db.QueryRow(`SELECT `+intentCols+` FROM sync_outbox WHERE id = ?`, id)
	i, err := scanIntent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync intent: %w", err)
	}
	return i, nil
}

// ListPending returns up to limit undelivered intents, oldest first.
func (s *OutboxStore) ListPending(limit int) ([]model.SyncIntent, error) {
	rows, err := s.db.Query(
		`SELECT `+intentCols+` FROM sync_outbox WHERE status = 'pending' ORDER BY created_at ASC, id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending intents: %w", err)
	}
	defer rows.Close()

	var intents []model.SyncIntent
	for rows.Next() {
		i, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync intent: %w", err)
		}
		intents = append(intents, *i)
	}
	return intents, rows.Err()
}

func (s *OutboxStore) MarkDelivered(id int64, now time.Time) error {
	_, err := s.db.Exec(
		`UPDATE sync_outbox SET status = 'delivered', delivered_at = ? WHERE id = ?`,
		now.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark intent delivered: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure. The row stays for inspection but
// is never retried again.
func (s *OutboxStore) MarkFailed(id int64, lastError string) error {
	_, err := s.db.Exec(
		`UPDATE sync_outbox SET status = 'failed', last_error = ? WHERE id = ?`,
		lastError, id,
	)
	if err != nil {
		return fmt.Errorf("mark intent failed: %w", err)
	}
	return nil
}

func (s *OutboxStore) RecordAttempt(id int64, lastError string) error {
	_, err := s.db.Exec(
		`UPDATE sync_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		lastError, id,
	)
	if err != nil {
		return fmt.Errorf("record intent attempt: %w", err)
	}
	return nil
}
