package store

import (
	"database/sql"
	"fmt"

	"github.com/calebwray/tandem/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var completedBy sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.PointsValue, &t.Status,
		&completedBy, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedBy.Valid {
		t.CompletedBy = &completedBy.Int64
	}
	return &t, nil
}

const taskCols = `id, household_id, title, points_value, status, completed_by, version, created_at, updated_at`

func (s *TaskStore) Create(householdID int64, title string, pointsValue int, assignedTo []int64) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO tasks (household_id, title, points_value) VALUES (?, ?, ?)`,
		householdID, title, pointsValue,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, profileID := range assignedTo {
		if _, err := tx.Exec(
			`INSERT INTO task_assignees (task_id, member_profile_id) VALUES (?, ?)`,
			id, profileID,
		); err != nil {
			return nil, fmt.Errorf("insert task assignee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	t.AssignedTo, err = s.listAssignees(id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskStore) listAssignees(taskID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT member_profile_id FROM task_assignees WHERE task_id = ? ORDER BY member_profile_id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list task assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *TaskStore) ListByHousehold(householdID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY created_at ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		tasks[i].AssignedTo, err = s.listAssignees(tasks[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// UpdateLifecycle writes the task's status and completed_by back, guarded
// by the version the caller read.
func (s *TaskStore) UpdateLifecycle(t *model.Task) error {
	var completedBy sql.NullInt64
	if t.CompletedBy != nil {
		completedBy = sql.NullInt64{Int64: *t.CompletedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE tasks
		 SET status = ?, completed_by = ?, version = version + 1, updated_at = datetime('now')
		 WHERE id = ? AND version = ?`,
		string(t.Status), completedBy, t.ID, t.Version,
	)
	if err != nil {
		return fmt.Errorf("update task lifecycle: %w", err)
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

// CountOpenAssignedExcluding counts tasks assigned to the member that are
// still pending or awaiting approval, other than the given task. Zero
// means approving that task finishes the member's day.
func (s *TaskStore) CountOpenAssignedExcluding(memberProfileID, excludeTaskID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*)
		 FROM tasks t
		 JOIN task_assignees a ON a.task_id = t.id
		 WHERE a.member_profile_id = ?
		   AND t.id != ?
		   AND t.status IN ('pending', 'pending_approval')`,
		memberProfileID, excludeTaskID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open tasks: %w", err)
	}
	return count, nil
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
