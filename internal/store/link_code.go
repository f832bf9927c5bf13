package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calebwray/tandem/internal/model"
)

// Link codes expire seven days after issuance.
const linkCodeTTL = 7 * 24 * time.Hour

type LinkCodeStore struct {
	db *sql.DB
}

func NewLinkCodeStore(db *sql.DB) *LinkCodeStore {
	return &LinkCodeStore{db: db}
}

func scanLinkCode(scanner interface{ Scan(...any) error }) (*model.LinkCode, error) {
	var lc model.LinkCode
	var usedAt sql.NullTime

	err := scanner.Scan(
		&lc.ID, &lc.HouseholdID, &lc.ChildFamilyMemberID, &lc.Code,
		&lc.ExpiresAt, &usedAt, &lc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		lc.UsedAt = &usedAt.Time
	}
	return &lc, nil
}

const linkCodeCols = `id, household_id, child_family_member_id, code, expires_at, used_at, created_at`

// Create issues a single-use code for linking the given child into
// another household. Any outstanding unused codes for the same child and
// household are invalidated first.
func (s *LinkCodeStore) Create(householdID, childFamilyMemberID int64, now time.Time) (*model.LinkCode, error) {
	_, err := s.db.Exec(
		`UPDATE link_codes SET used_at = ? WHERE household_id = ? AND child_family_member_id = ? AND used_at IS NULL`,
		now.UTC(), householdID, childFamilyMemberID,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous codes: %w", err)
	}

	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	result, err := s.db.Exec(
		`INSERT INTO link_codes (household_id, child_family_member_id, code, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		householdID, childFamilyMemberID, code, now.UTC().Add(linkCodeTTL), now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert link code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+linkCodeCols+` FROM link_codes WHERE id = ?`, id)
	return scanLinkCode(row)
}

// GetValid returns the unexpired, unused code matching the given token,
// or nil when none qualifies.
func (s *LinkCodeStore) GetValid(code string, now time.Time) (*model.LinkCode, error) {
	row := s.db.QueryRow(
		`SELECT `+linkCodeCols+` FROM link_codes WHERE code = ? AND expires_at > ? AND used_at IS NULL`,
		code, now.UTC(),
	)
	lc, err := scanLinkCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link code: %w", err)
	}
	return lc, nil
}

func (s *LinkCodeStore) MarkUsed(id int64, now time.Time) error {
	_, err := s.db.Exec(`UPDATE link_codes SET used_at = ? WHERE id = ?`, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark link code used: %w", err)
	}
	return nil
}

func (s *LinkCodeStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM link_codes WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired link codes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
