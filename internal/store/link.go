package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/calebwray/tandem/internal/model"
)

type LinkStore struct {
	db *sql.DB
}

func NewLinkStore(db *sql.DB) *LinkStore {
	return &LinkStore{db: db}
}

func scanLink(scanner interface{ Scan(...any) error }) (*model.HouseholdLink, error) {
	var l model.HouseholdLink
	err := scanner.Scan(
		&l.ID, &l.ChildFamilyMemberID, &l.Household1ID, &l.Household2ID,
		&l.Settings.Points, &l.Settings.XP, &l.Settings.Streaks, &l.Settings.Tasks,
		&l.Settings.Quests, &l.Settings.Routines, &l.Settings.Store,
		&l.Settings.Wishlist, &l.Settings.Calendar,
		&l.Status, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const linkCols = `id, child_family_member_id, household1_id, household2_id,
	share_points, share_xp, share_streaks, share_tasks, share_quests,
	share_routines, share_store, share_wishlist, share_calendar,
	status, version, created_at, updated_at`

// Create inserts an active link with every category separate.
func (s *LinkStore) Create(childFamilyMemberID, household1ID, household2ID int64) (*model.HouseholdLink, error) {
	result, err := s.db.Exec(
		`INSERT INTO household_links (child_family_member_id, household1_id, household2_id) VALUES (?, ?, ?)`,
		childFamilyMemberID, household1ID, household2ID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LinkStore) GetByID(id int64) (*model.HouseholdLink, error) {
	row := s.db.QueryRow(`SELECT `+linkCols+` FROM household_links WHERE id = ?`, id)
	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return l, nil
}

// FindActiveByChildAndHousehold returns the active link between the given
// household and child, or nil when none exists.
func (s *LinkStore) FindActiveByChildAndHousehold(childFamilyMemberID, householdID int64) (*model.HouseholdLink, error) {
	row := s.db.QueryRow(
		`SELECT `+linkCols+` FROM household_links
		 WHERE child_family_member_id = ? AND status = 'active'
		   AND (household1_id = ? OR household2_id = ?)`,
		childFamilyMemberID, householdID, householdID,
	)
	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active link: %w", err)
	}
	return l, nil
}

// ListActiveByChild returns every active link sharing the given child.
func (s *LinkStore) ListActiveByChild(childFamilyMemberID int64) ([]model.HouseholdLink, error) {
	rows, err := s.db.Query(
		`SELECT `+linkCols+` FROM household_links
		 WHERE child_family_member_id = ? AND status = 'active' ORDER BY id ASC`,
		childFamilyMemberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}
	defer rows.Close()

	var links []model.HouseholdLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// Update writes the link's settings and status back, guarded by the
// version the caller read.
func (s *LinkStore) Update(l *model.HouseholdLink) error {
	result, err := s.db.Exec(
		`UPDATE household_links
		 SET share_points = ?, share_xp = ?, share_streaks = ?, share_tasks = ?,
		     share_quests = ?, share_routines = ?, share_store = ?,
		     share_wishlist = ?, share_calendar = ?, status = ?,
		     version = version + 1, updated_at = datetime('now')
		 WHERE id = ? AND version = ?`,
		l.Settings.Points, l.Settings.XP, l.Settings.Streaks, l.Settings.Tasks,
		l.Settings.Quests, l.Settings.Routines, l.Settings.Store,
		l.Settings.Wishlist, l.Settings.Calendar, string(l.Status),
		l.ID, l.Version,
	)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
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

// --- Pending change methods ---

func scanChange(scanner interface{ Scan(...any) error }) (*model.PendingChange, error) {
	var c model.PendingChange
	var lastRejected sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.LinkID, &c.Setting, &c.CurrentValue, &c.ProposedValue,
		&c.ProposedBy, &c.ProposedByHousehold, &c.ProposedAt, &c.ExpiresAt,
		&c.Status, &c.PreviousRejections, &lastRejected,
	)
	if err != nil {
		return nil, err
	}

	if lastRejected.Valid {
		c.LastRejectedAt = &lastRejected.Time
	}
	return &c, nil
}

const changeCols = `id, link_id, setting, current_value, proposed_value, proposed_by, proposed_by_household, proposed_at, expires_at, status, previous_rejections, last_rejected_at`

// CreateChange inserts a pending change together with its append-only
// proposal-history entry, in one transaction.
func (s *LinkStore) CreateChange(c *model.PendingChange) (*model.PendingChange, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO pending_changes
		 (link_id, setting, current_value, proposed_value, proposed_by, proposed_by_household, proposed_at, expires_at, previous_rejections)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.LinkID, string(c.Setting), string(c.CurrentValue), string(c.ProposedValue),
		c.ProposedBy, c.ProposedByHousehold, c.ProposedAt.UTC(), c.ExpiresAt.UTC(),
		c.PreviousRejections,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pending change: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO proposal_history (link_id, setting, proposed_value, proposed_by, proposed_by_household, proposed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.LinkID, string(c.Setting), string(c.ProposedValue),
		c.ProposedBy, c.ProposedByHousehold, c.ProposedAt.UTC(),
	); err != nil {
		return nil, fmt.Errorf("insert proposal history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetChange(id)
}

func (s *LinkStore) GetChange(id int64) (*model.PendingChange, error) {
	row := s.db.QueryRow(`SELECT `+changeCols+` FROM pending_changes WHERE id = ?`, id)
	c, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending change: %w", err)
	}
	return c, nil
}

func (s *LinkStore) ListChangesByLink(linkID int64) ([]model.PendingChange, error) {
	rows, err := s.db.Query(
		`SELECT `+changeCols+` FROM pending_changes WHERE link_id = ? ORDER BY proposed_at ASC, id ASC`,
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []model.PendingChange
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		changes = append(changes, *c)
	}
	return changes, rows.Err()
}

// ResolveChange transitions a change out of pending. The WHERE clause
// requires status = 'pending', so terminal states never retransition.
func (s *LinkStore) ResolveChange(c *model.PendingChange) error {
	var lastRejected sql.NullTime
	if c.LastRejectedAt != nil {
		lastRejected = sql.NullTime{Time: c.LastRejectedAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE pending_changes
		 SET status = ?, previous_rejections = ?, last_rejected_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(c.Status), c.PreviousRejections, lastRejected, c.ID,
	)
	if err != nil {
		return fmt.Errorf("resolve pending change: %w", err)
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

// CountProposalsSince counts audit entries for a setting proposed by a
// household after the cutoff. Used for the rolling rate-limit window.
func (s *LinkStore) CountProposalsSince(linkID int64, setting model.Category, householdID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM proposal_history
		 WHERE link_id = ? AND setting = ? AND proposed_by_household = ? AND proposed_at > ?`,
		linkID, string(setting), householdID, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return count, nil
}

// LatestRejectedChange returns the most recently rejected change for a
// setting proposed by a household, or nil if it has never been rejected.
func (s *LinkStore) LatestRejectedChange(linkID int64, setting model.Category, householdID int64) (*model.PendingChange, error) {
	row := s.db.QueryRow(
		`SELECT `+changeCols+` FROM pending_changes
		 WHERE link_id = ? AND setting = ? AND proposed_by_household = ? AND status = 'rejected'
		 ORDER BY last_rejected_at DESC LIMIT 1`,
		linkID, string(setting), householdID,
	)
	c, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest rejected change: %w", err)
	}
	return c, nil
}

// CountRejections counts how many times a setting proposed by a household
// has been rejected on this link.
func (s *LinkStore) CountRejections(linkID int64, setting model.Category, householdID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pending_changes
		 WHERE link_id = ? AND setting = ? AND proposed_by_household = ? AND status = 'rejected'`,
		linkID, string(setting), householdID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rejections: %w", err)
	}
	return count, nil
}

// ExpireStaleChanges marks every pending change whose expiry has passed
// as expired. Returns how many rows transitioned.
func (s *LinkStore) ExpireStaleChanges(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE pending_changes SET status = 'expired' WHERE status = 'pending' AND expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("expire stale changes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

func (s *LinkStore) ListProposalHistory(linkID int64) ([]model.ProposalEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, link_id, setting, proposed_value, proposed_by, proposed_by_household, proposed_at
		 FROM proposal_history WHERE link_id = ? ORDER BY proposed_at ASC, id ASC`,
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("list proposal history: %w", err)
	}
	defer rows.Close()

	var entries []model.ProposalEntry
	for rows.Next() {
		var e model.ProposalEntry
		if err := rows.Scan(&e.ID, &e.LinkID, &e.Setting, &e.ProposedValue, &e.ProposedBy, &e.ProposedByHousehold, &e.ProposedAt); err != nil {
			return nil, fmt.Errorf("scan proposal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
