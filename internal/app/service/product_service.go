package service

import (
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product is not available")
	ErrSKUAlreadyExists   = errors.New("sku already exists")
	ErrInvalidProduct     = errors.New("invalid product")
)

type ProductListOptions struct {
	CategoryID      *uint
	Featured        *bool
	InStockOnly     bool
	IncludeInactive bool
	Search          string
	Sort            repository.ProductSort
	SortAscending   bool
	Page            int
	PerPage         int
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name        string              `json:"name" binding:"required,max=255"`
	Description string              `json:"description"`
	CategoryID  *uint               `json:"category_id"`
	Price       decimal.Decimal     `json:"price"`
	SalePrice   decimal.NullDecimal `json:"sale_price"`
	Stock       int                 `json:"stock" binding:"min=0"`
	SKU         string              `json:"sku" binding:"required,max=64"`
	IsActive    *bool               `json:"is_active"`
	IsFeatured  bool                `json:"is_featured"`
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, int64, error)
	GetProductByID(id uint) (*model.Product, error)
	GetProductBySlug(slug string) (*model.Product, error)
	CreateProduct(input ProductInput) (*model.Product, error)
	UpdateProduct(id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(id uint) error
	CheckStock(productID uint, quantity int) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, int64, error) {
	limit, offset := paginate(opts.Page, opts.PerPage)
	logger.Debug("Listing products", map[string]interface{}{
		"category_id": opts.CategoryID,
		"search":      opts.Search,
		"sort":        opts.Sort,
		"limit":       limit,
		"offset":      offset,
	})

	products, total, err := s.productRepo.FindWithFilter(repository.ProductFilter{
		CategoryID:    opts.CategoryID,
		ActiveOnly:    !opts.IncludeInactive,
		Featured:      opts.Featured,
		InStockOnly:   opts.InStockOnly,
		Search:        opts.Search,
		SortBy:        opts.Sort,
		SortAscending: opts.SortAscending,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		logger.Error("Failed to list products", err, nil)
		return nil, 0, err
	}

	logger.Info("Products listed", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProductBySlug(slug string) (*model.Product, error) {
	product, err := s.productRepo.FindBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) validateInput(input ProductInput) error {
	if !input.Price.IsPositive() {
		return errors.Join(ErrInvalidProduct, errors.New("price must be positive"))
	}
	if input.SalePrice.Valid && (input.SalePrice.Decimal.IsNegative() || input.SalePrice.Decimal.GreaterThan(input.Price)) {
		return errors.Join(ErrInvalidProduct, errors.New("sale_price must be between 0 and price"))
	}
	if input.Stock < 0 {
		return errors.Join(ErrInvalidProduct, errors.New("stock must not be negative"))
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(*input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}
	}
	return nil
}

func (s *productService) CreateProduct(input ProductInput) (*model.Product, error) {
	logger.Info("Creating new product", map[string]interface{}{
		"name":        input.Name,
		"sku":         input.SKU,
		"category_id": input.CategoryID,
	})

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	slug, err := util.UniqueSlug(input.Name, func(candidate string) (bool, error) {
		return s.productRepo.SlugExists(candidate, 0)
	})
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Price:       input.Price,
		SalePrice:   input.SalePrice,
		Stock:       input.Stock,
		SKU:         input.SKU,
		IsActive:    input.IsActive == nil || *input.IsActive,
		IsFeatured:  input.IsFeatured,
	}

	if err := s.productRepo.Create(product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn("Product create rejected: duplicate sku", map[string]interface{}{
				"sku": input.SKU,
			})
			return nil, ErrSKUAlreadyExists
		}
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": input.Name,
		})
		return nil, err
	}

	logger.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return product, nil
}

func (s *productService) UpdateProduct(id uint, input ProductInput) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": id,
		"name":       input.Name,
	})

	product, err := s.GetProductByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	if input.Name != product.Name {
		slug, err := util.UniqueSlug(input.Name, func(candidate string) (bool, error) {
			return s.productRepo.SlugExists(candidate, product.ID)
		})
		if err != nil {
			return nil, err
		}
		product.Slug = slug
	}

	product.Name = input.Name
	product.Description = input.Description
	product.CategoryID = input.CategoryID
	product.Category = nil
	product.Price = input.Price
	product.SalePrice = input.SalePrice
	product.Stock = input.Stock
	product.SKU = input.SKU
	product.IsFeatured = input.IsFeatured
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.productRepo.Update(product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSKUAlreadyExists
		}
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return product, nil
}

func (s *productService) DeleteProduct(id uint) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	return nil
}

func (s *productService) CheckStock(productID uint, quantity int) error {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return ErrProductUnavailable
	}
	if product.Stock < quantity {
		logger.Warn("Insufficient product stock", map[string]interface{}{
			"product_id":      productID,
			"requested":       quantity,
			"available_stock": product.Stock,
		})
		return ErrInsufficientStock
	}
	return nil
}
