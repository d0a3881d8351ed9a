package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/attribution"
	"docuchat/internal/model"
)

type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// CreateWithUsage reconciles the agent's claimed citations and persists the
// interaction together with its usage links in a single transaction, so
// analytics never observe one without the other. The claims are resolved
// against the documents table as it exists inside the transaction.
func (r *InteractionRepository) CreateWithUsage(interaction *model.Interaction, claims []string) (*attribution.Result, error) {
	var result *attribution.Result

	err := r.db.Transaction(func(tx *gorm.DB) error {
		resolve := func(filename string) (*model.Document, error) {
			var doc model.Document
			if err := tx.Where("filename = ?", filename).First(&doc).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil
				}
				return nil, fmt.Errorf("resolve claimed document failed: %w", err)
			}
			return &doc, nil
		}

		reconciled, err := attribution.Reconcile(claims, resolve)
		if err != nil {
			return err
		}

		if err := tx.Create(interaction).Error; err != nil {
			return fmt.Errorf("create interaction failed: %w", err)
		}

		for _, accepted := range reconciled.Accepted {
			link := model.UsageLink{
				InteractionID: interaction.ID,
				DocumentID:    accepted.Document.ID,
				UsageOrder:    accepted.Order,
			}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("create usage link failed: %w", err)
			}
		}

		result = reconciled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *InteractionRepository) GetByID(id uint) (*model.Interaction, error) {
	var interaction model.Interaction
	if err := r.db.First(&interaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get interaction failed: %w", err)
	}
	return &interaction, nil
}

// UsedFilenames returns the filenames linked to an interaction in citation
// order.
func (r *InteractionRepository) UsedFilenames(interactionID uint) ([]string, error) {
	var filenames []string
	err := r.db.Model(&model.UsageLink{}).
		Joins("JOIN documents ON documents.id = usage_links.document_id").
		Where("usage_links.interaction_id = ?", interactionID).
		Order("usage_links.usage_order ASC").
		Pluck("documents.filename", &filenames).Error
	if err != nil {
		return nil, fmt.Errorf("list used filenames failed: %w", err)
	}
	return filenames, nil
}
