package store

import (
	"database/sql"
	"fmt"

	"github.com/calebwray/tandem/internal/model"
)

type RoutineStore struct {
	db *sql.DB
}

func NewRoutineStore(db *sql.DB) *RoutineStore {
	return &RoutineStore{db: db}
}

func scanRoutine(scanner interface{ Scan(...any) error }) (*model.Routine, error) {
	var r model.Routine
	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.PointsValue, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const routineCols = `id, household_id, title, points_value, created_at, updated_at`

func (s *RoutineStore) Create(householdID int64, title string, pointsValue int) (*model.Routine, error) {
	result, err := s.db.Exec(
		`INSERT INTO routines (household_id, title, points_value) VALUES (?, ?, ?)`,
		householdID, title, pointsValue,
	)
	if err != nil {
		return nil, fmt.Errorf("insert routine: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoutineStore) GetByID(id int64) (*model.Routine, error) {
	row := s.db.QueryRow(`SELECT `+routineCols+` FROM routines WHERE id = ?`, id)
	r, err := scanRoutine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get routine: %w", err)
	}
	return r, nil
}

func (s *RoutineStore) ListByHousehold(householdID int64) ([]model.Routine, error) {
	rows, err := s.db.Query(
		`SELECT `+routineCols+` FROM routines WHERE household_id = ? ORDER BY title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	var routines []model.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}

func (s *RoutineStore) CreateCompletion(routineID, completedBy int64) (*model.RoutineCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO routine_completions (routine_id, completed_by) VALUES (?, ?)`,
		routineID, completedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert routine completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var c model.RoutineCompletion
	err = s.db.QueryRow(
		`SELECT id, routine_id, completed_by, completed_at FROM routine_completions WHERE id = ?`, id,
	).Scan(&c.ID, &c.RoutineID, &c.CompletedBy, &c.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("get routine completion: %w", err)
	}
	return &c, nil
}
