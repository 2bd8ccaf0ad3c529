package service

import (
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryCycle    = errors.New("category cannot be its own ancestor")
)

type CategoryInput struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
	Order       int    `json:"order"`
	IsActive    *bool  `json:"is_active"`
}

type CategoryService interface {
	GetTree(activeOnly bool) ([]model.Category, error)
	GetCategory(id uint) (*model.Category, error)
	CreateCategory(input CategoryInput) (*model.Category, error)
	UpdateCategory(id uint, input CategoryInput) (*model.Category, error)
	DeleteCategory(id uint) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

// GetTree nests the flat list under its roots. Sibling order follows the repository ordering.
// Categories whose parent is filtered out (inactive) are dropped with their subtree.
func (s *categoryService) GetTree(activeOnly bool) ([]model.Category, error) {
	flat, err := s.categoryRepo.FindAll(activeOnly)
	if err != nil {
		return nil, err
	}

	present := make(map[uint]bool, len(flat))
	childrenOf := make(map[uint][]model.Category)
	for _, c := range flat {
		present[c.ID] = true
	}
	var roots []model.Category
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if present[*c.ParentID] {
			childrenOf[*c.ParentID] = append(childrenOf[*c.ParentID], c)
		}
	}

	var attach func(nodes []model.Category) []model.Category
	attach = func(nodes []model.Category) []model.Category {
		for i := range nodes {
			nodes[i].Children = attach(childrenOf[nodes[i].ID])
		}
		return nodes
	}
	return attach(roots), nil
}

func (s *categoryService) GetCategory(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// checkParent rejects a parent that does not exist or whose ancestor chain reaches id.
func (s *categoryService) checkParent(id uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	if id != 0 && *parentID == id {
		return ErrCategoryCycle
	}

	seen := map[uint]bool{}
	current := parentID
	for current != nil {
		if id != 0 && *current == id {
			return ErrCategoryCycle
		}
		if seen[*current] {
			// pre-existing loop above us; refuse to extend it
			return ErrCategoryCycle
		}
		seen[*current] = true

		next, err := s.categoryRepo.ParentOf(*current)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}
		current = next
	}
	return nil
}

func (s *categoryService) CreateCategory(input CategoryInput) (*model.Category, error) {
	if err := s.checkParent(0, input.ParentID); err != nil {
		return nil, err
	}

	slug, err := util.UniqueSlug(input.Name, func(candidate string) (bool, error) {
		return s.categoryRepo.SlugExists(candidate, 0)
	})
	if err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		ParentID:    input.ParentID,
		Order:       input.Order,
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}

	logger.Info("Category created", map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
	})
	return category, nil
}

func (s *categoryService) UpdateCategory(id uint, input CategoryInput) (*model.Category, error) {
	category, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}
	if err := s.checkParent(id, input.ParentID); err != nil {
		logger.Warn("Category parent rejected", map[string]interface{}{
			"category_id": id,
			"parent_id":   input.ParentID,
		})
		return nil, err
	}

	if input.Name != category.Name {
		slug, err := util.UniqueSlug(input.Name, func(candidate string) (bool, error) {
			return s.categoryRepo.SlugExists(candidate, id)
		})
		if err != nil {
			return nil, err
		}
		category.Slug = slug
	}

	category.Name = input.Name
	category.Description = input.Description
	category.ParentID = input.ParentID
	category.Order = input.Order
	category.Children = nil
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}

	logger.Info("Category updated", map[string]interface{}{
		"category_id": id,
		"slug":        category.Slug,
	})
	return category, nil
}

func (s *categoryService) DeleteCategory(id uint) error {
	if err := s.categoryRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	logger.Info("Category deleted", map[string]interface{}{
		"category_id": id,
	})
	return nil
}
