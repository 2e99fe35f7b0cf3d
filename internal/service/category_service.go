package service

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryService struct {
	categories repository.CategoryRepository
	maintainer *BalanceMaintainer
	logger     *zap.Logger
}

func NewCategoryService(categories repository.CategoryRepository, maintainer *BalanceMaintainer, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		maintainer: maintainer,
		logger:     logger,
	}
}

func (s *CategoryService) Create(ctx context.Context, req *dto.CategoryRequest) (*dto.CategoryRecord, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	categoryType := models.CategoryType(req.Type)
	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, ErrInvalidType
	}

	parentID, err := s.resolveParent(ctx, uuid.Nil, req.Parent)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:             uuid.New(),
		Name:           sanitizeUTF8(req.Name),
		Description:    sanitizeUTF8(req.Description),
		Icon:           req.Icon,
		Color:          req.Color,
		Type:           categoryType,
		ParentID:       parentID,
		SortOrder:      req.SortOrder,
		UpdatedAt:      nowMillis(),
		SyncVersion:    1,
		LastModifiedBy: modifiedBy(req.LastModifiedBy),
		CreatedAt:      time.Now(),
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	record := categoryToRecord(category, false)
	return &record, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*dto.CategoryRecord, error) {
	category, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	record := categoryToRecord(category, false)
	return &record, nil
}

func (s *CategoryService) List(ctx context.Context) ([]dto.CategoryRecord, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]dto.CategoryRecord, 0, len(categories))
	for _, category := range categories {
		if category.IsDeleted {
			continue
		}
		records = append(records, categoryToRecord(category, false))
	}
	return records, nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req *dto.CategoryRequest) (*dto.CategoryRecord, error) {
	category, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Type != "" {
		categoryType := models.CategoryType(req.Type)
		if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
			return nil, ErrInvalidType
		}
		category.Type = categoryType
	}

	parentID, err := s.resolveParent(ctx, id, req.Parent)
	if err != nil {
		return nil, err
	}
	oldParentID := category.ParentID

	category.Name = sanitizeUTF8(req.Name)
	category.Description = sanitizeUTF8(req.Description)
	category.Icon = req.Icon
	category.Color = req.Color
	category.ParentID = parentID
	category.SortOrder = req.SortOrder
	category.UpdatedAt = nowMillis()
	category.SyncVersion++
	category.LastModifiedBy = modifiedBy(req.LastModifiedBy)

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	// A reparent moves the whole subtree's totals between ancestor chains.
	if !sameParent(oldParentID, category.ParentID) {
		s.maintainer.OnCategoryReparented(ctx, category, oldParentID)
	}

	record := categoryToRecord(category, false)
	return &record, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}
	if err := s.categories.SoftDelete(ctx, id, nowMillis()); err != nil {
		return err
	}
	s.maintainer.OnCategorySoftDeleted(ctx, category)
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// resolveParent validates that the requested parent exists and that attaching
// it would not close a cycle. The incremental counter propagation walks the
// ancestor chain, so a cycle here would loop it forever; reparenting a node
// under one of its own descendants is rejected outright.
func (s *CategoryService) resolveParent(ctx context.Context, categoryID uuid.UUID, parent *string) (*uuid.UUID, error) {
	if parent == nil || *parent == "" {
		return nil, nil
	}

	parentID, err := uuid.Parse(*parent)
	if err != nil {
		return nil, ErrParentNotFound
	}
	if parentID == categoryID {
		return nil, ErrCategoryCycle
	}

	visited := map[uuid.UUID]bool{}
	current := parentID
	for {
		if visited[current] {
			return nil, ErrCategoryCycle
		}
		visited[current] = true

		node, err := s.categories.GetByID(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if node.IsDeleted {
			return nil, ErrParentNotFound
		}
		if node.ID == categoryID {
			return nil, ErrCategoryCycle
		}
		if node.ParentID == nil {
			break
		}
		if *node.ParentID == categoryID {
			return nil, ErrCategoryCycle
		}
		current = *node.ParentID
	}

	return &parentID, nil
}

func (s *CategoryService) getActive(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if category.IsDeleted {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}
