package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type DiscardRepository struct {
	db *gorm.DB
}

func NewDiscardRepository(db *gorm.DB) *DiscardRepository {
	return &DiscardRepository{db: db}
}

func (r *DiscardRepository) Create(discard *model.AttributionDiscard) error {
	if err := r.db.Create(discard).Error; err != nil {
		return fmt.Errorf("create attribution discard failed: %w", err)
	}
	return nil
}

func (r *DiscardRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.AttributionDiscard{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count attribution discards failed: %w", err)
	}
	return count, nil
}
