package store

import (
	"database/sql"
	"fmt"

	"github.com/calebwray/tandem/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.Version, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, name, version, created_at, updated_at`

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// --- Member profile methods ---

func scanProfile(scanner interface{ Scan(...any) error }) (*model.MemberProfile, error) {
	var p model.MemberProfile
	var lastCompletion sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.HouseholdID, &p.FamilyMemberID, &p.DisplayName, &p.Role,
		&p.PointsTotal, &p.CurrentStreak, &p.LongestStreak, &lastCompletion,
		&p.StreakMultiplier, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCompletion.Valid {
		p.LastCompletionDate = &lastCompletion.Time
	}
	return &p, nil
}

const profileCols = `id, household_id, family_member_id, display_name, role, points_total, current_streak, longest_streak, last_completion_date, streak_multiplier, version, created_at, updated_at`

func (s *HouseholdStore) CreateProfile(householdID, familyMemberID int64, displayName string, role model.Role) (*model.MemberProfile, error) {
	result, err := s.db.Exec(
		`INSERT INTO member_profiles (household_id, family_member_id, display_name, role) VALUES (?, ?, ?, ?)`,
		householdID, familyMemberID, displayName, string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("insert member profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetProfile(id)
}

func (s *HouseholdStore) GetProfile(id int64) (*model.MemberProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM member_profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member profile: %w", err)
	}
	return p, nil
}

// GetProfileByFamilyMember returns the profile a family member holds in a
// specific household, or nil if they have none there.
func (s *HouseholdStore) GetProfileByFamilyMember(householdID, familyMemberID int64) (*model.MemberProfile, error) {
	row := s.db.QueryRow(
		`SELECT `+profileCols+` FROM member_profiles WHERE household_id = ? AND family_member_id = ?`,
		householdID, familyMemberID,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by family member: %w", err)
	}
	return p, nil
}

func (s *HouseholdStore) ListProfiles(householdID int64) ([]model.MemberProfile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM member_profiles WHERE household_id = ? ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list member profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.MemberProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpdateProfileProgress writes the profile's points and streak state back,
// guarded by the version the caller read. Returns ErrStaleVersion if
// another writer got there first.
func (s *HouseholdStore) UpdateProfileProgress(p *model.MemberProfile) error {
	var lastCompletion sql.NullTime
	if p.LastCompletionDate != nil {
		lastCompletion = sql.NullTime{Time: p.LastCompletionDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE member_profiles
		 SET points_total = ?, current_streak = ?, longest_streak = ?,
		     last_completion_date = ?, streak_multiplier = ?,
		     version = version + 1, updated_at = datetime('now')
		 WHERE id = ? AND version = ?`,
		p.PointsTotal, p.CurrentStreak, p.LongestStreak,
		lastCompletion, p.StreakMultiplier,
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update profile progress: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (s *HouseholdStore) DeleteProfile(id int64) error {
	_, err := s.db.Exec(`DELETE FROM member_profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member profile: %w", err)
	}
	return nil
}
