package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mentorchat/internal/model"
)

// TurnRepository persists the per-user conversation log. It only ever
// inserts and reads; turns are never updated or deleted.
type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Create inserts turn. ID and CreatedAt are always assigned here, whatever the
// caller put in them.
func (r *TurnRepository) Create(ctx context.Context, turn *model.ChatTurn) error {
	turn.ID = ""
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return wrap("create chat turn", err)
	}
	return nil
}

// ListByUserID returns the oldest limit turns of userID, oldest first.
func (r *TurnRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, wrap("list chat turns", err)
	}
	return turns, nil
}

// ListRecentByUserID returns the newest limit turns of userID, oldest first.
func (r *TurnRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, wrap("list recent chat turns", err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Probe reads at most one id from chat_turns to prove the store answers.
func (r *TurnRepository) Probe(ctx context.Context) error {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.ChatTurn{}).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return wrap("probe chat turns", err)
	}
	return nil
}

func wrap(op string, err error) error {
	if kind := classify(err); kind != nil {
		return fmt.Errorf("%s failed: %w: %w", op, kind, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
