package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Upsert stores the feedback for an interaction, replacing any earlier
// polarity. Exactly one row per interaction survives.
func (r *FeedbackRepository) Upsert(interactionID uint, isPositive bool) (*model.Feedback, error) {
	var feedback model.Feedback
	err := r.db.Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("interaction_id = ?", interactionID).First(&feedback).Error
		switch {
		case findErr == nil:
			feedback.IsPositive = isPositive
			if err := tx.Save(&feedback).Error; err != nil {
				return fmt.Errorf("update feedback failed: %w", err)
			}
			return nil
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			feedback = model.Feedback{InteractionID: interactionID, IsPositive: isPositive}
			if err := tx.Create(&feedback).Error; err != nil {
				return fmt.Errorf("create feedback failed: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("query feedback failed: %w", findErr)
		}
	})
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *FeedbackRepository) GetByInteractionID(interactionID uint) (*model.Feedback, error) {
	var feedback model.Feedback
	if err := r.db.Where("interaction_id = ?", interactionID).First(&feedback).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get feedback failed: %w", err)
	}
	return &feedback, nil
}
