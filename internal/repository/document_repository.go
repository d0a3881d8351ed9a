package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) List() ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetByFilename(filename string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("filename = ?", filename).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by filename failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ExistsByFilename(filename string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Document{}).Where("filename = ?", filename).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check document filename failed: %w", err)
	}
	return count > 0, nil
}

func (r *DocumentRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// DeleteAll removes every document row and returns what was removed so the
// caller can itemize the purge.
func (r *DocumentRepository) DeleteAll() ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("load documents for purge failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if err := r.db.Where("1 = 1").Delete(&model.Document{}).Error; err != nil {
		return nil, fmt.Errorf("purge documents failed: %w", err)
	}
	return docs, nil
}
