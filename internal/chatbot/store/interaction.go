package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/logger"
	"github.com/kart-io/providentia/internal/model"
)

type interactions struct {
	db *gorm.DB
}

func newInteractions(db *gorm.DB) *interactions {
	return &interactions{db}
}

// Create appends a single interaction record.
func (i *interactions) Create(ctx context.Context, interaction *model.Interaction) error {
	result := i.db.WithContext(ctx).Create(interaction)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		logger.Warnw("interaction insert affected no rows", "user_id", interaction.UserID)
	}
	return nil
}

// List returns a page of a user's interactions, newest first.
func (i *interactions) List(ctx context.Context, userID string, limit, offset int) (*model.InteractionList, error) {
	var count int64
	var items []*model.Interaction

	if err := i.db.WithContext(ctx).Model(&model.Interaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := i.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &model.InteractionList{TotalCount: count, Items: items}, nil
}

// Stats computes aggregate usage figures. When userID is empty the
// aggregates cover all users; otherwise they are scoped to that user.
func (i *interactions) Stats(ctx context.Context, userID string) (*model.InteractionStats, error) {
	scoped := func() *gorm.DB {
		tx := i.db.WithContext(ctx).Model(&model.Interaction{})
		if userID != "" {
			tx = tx.Where("user_id = ?", userID)
		}
		return tx
	}

	stats := &model.InteractionStats{}

	if err := scoped().Count(&stats.TotalChats).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := scoped().Distinct("user_id").Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// "Today" is anchored to midnight UTC, not a rolling 24h window.
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	if err := scoped().Where("created_at >= ?", midnight).Count(&stats.ChatsToday).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := scoped().
		Select("COALESCE(AVG(LENGTH(answer)), 0)").
		Scan(&stats.AvgAnswerLength).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return stats, nil
}
