package store

import (
	"database/sql"
	"fmt"

	"github.com/calebwray/tandem/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.PointCost, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const rewardCols = `id, household_id, title, point_cost, active, created_at`

func (s *RewardStore) Create(householdID int64, title string, pointCost int) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, point_cost) VALUES (?, ?, ?)`,
		householdID, title, pointCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByHousehold(householdID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? AND active = 1 ORDER BY point_cost ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) CreatePurchase(rewardID, purchasedBy int64, pointsSpent int) (*model.RewardPurchase, error) {
	result, err := s.db.Exec(
		`INSERT INTO reward_purchases (reward_id, purchased_by, points_spent) VALUES (?, ?, ?)`,
		rewardID, purchasedBy, pointsSpent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward purchase: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var p model.RewardPurchase
	err = s.db.QueryRow(
		`SELECT id, reward_id, purchased_by, points_spent, purchased_at FROM reward_purchases WHERE id = ?`, id,
	).Scan(&p.ID, &p.RewardID, &p.PurchasedBy, &p.PointsSpent, &p.PurchasedAt)
	if err != nil {
		return nil, fmt.Errorf("get reward purchase: %w", err)
	}
	return &p, nil
}
