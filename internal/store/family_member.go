package store

import (
	"database/sql"
	"fmt"

	"github.com/calebwray/tandem/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

func scanFamilyMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var pinHash string
	err := scanner.Scan(&m.ID, &m.Name, &pinHash, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.HasPIN = pinHash != ""
	return &m, nil
}

const familyMemberCols = `id, name, pin_hash, created_at, updated_at`

func (s *FamilyMemberStore) Create(name string) (*model.FamilyMember, error) {
	result, err := s.db.Exec(`INSERT INTO family_members (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(`SELECT `+familyMemberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanFamilyMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) SetPIN(id int64, pinHash string) error {
	_, err := s.db.Exec(
		`UPDATE family_members SET pin_hash = ?, updated_at = datetime('now') WHERE id = ?`,
		pinHash, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) GetPINHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT pin_hash FROM family_members WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash, nil
}

// --- Linked household methods ---

// AddHousehold records that the family member belongs to a household.
// Adding the same pair twice is a no-op.
func (s *FamilyMemberStore) AddHousehold(familyMemberID, householdID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO family_member_households (family_member_id, household_id) VALUES (?, ?)`,
		familyMemberID, householdID,
	)
	if err != nil {
		return fmt.Errorf("add household membership: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) RemoveHousehold(familyMemberID, householdID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM family_member_households WHERE family_member_id = ? AND household_id = ?`,
		familyMemberID, householdID,
	)
	if err != nil {
		return fmt.Errorf("remove household membership: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) LinkedHouseholds(familyMemberID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT household_id FROM family_member_households WHERE family_member_id = ? ORDER BY household_id ASC`,
		familyMemberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list linked households: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
