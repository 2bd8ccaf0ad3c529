package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type OfferRepository interface {
	Create(offer *model.Offer) error
	FindByID(id uint) (*model.Offer, error)
	FindByCode(code string) (*model.Offer, error)
	FindAll(limit, offset int) ([]model.Offer, int64, error)
	GetActiveOffers(now time.Time) ([]model.Offer, error)
	GetUserUsageCount(offerID, userID uint) (int, error)
	GetUserUsage(offerID, userID uint) (*model.OfferUsage, error)
	FindOrderOffers(orderID uint) ([]model.OrderOffer, error)
	Update(offer *model.Offer) error
	Deactivate(id uint) error
	DeactivateExpired(now time.Time) (int64, error)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(offer *model.Offer) error {
	logger.Debug("Creating offer in database", map[string]interface{}{
		"name": offer.Name,
		"code": offer.Code,
		"type": offer.Type,
	})

	if err := r.db.Create(offer).Error; err != nil {
		logger.Error("Failed to create offer in database", err, map[string]interface{}{
			"name": offer.Name,
		})
		return err
	}

	logger.Debug("Offer created in database", map[string]interface{}{
		"offer_id": offer.ID,
	})
	return nil
}

func (r *offerRepository) FindByID(id uint) (*model.Offer, error) {
	var offer model.Offer
	if err := r.db.First(&offer, id).Error; err != nil {
		logger.Error("Failed to find offer by ID in database", err, map[string]interface{}{
			"offer_id": id,
		})
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) FindByCode(code string) (*model.Offer, error) {
	logger.Debug("Finding offer by code in database", map[string]interface{}{
		"code": code,
	})

	var offer model.Offer
	if err := r.db.Where("code = ?", code).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) FindAll(limit, offset int) ([]model.Offer, int64, error) {
	var total int64
	if err := r.db.Model(&model.Offer{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count offers in database", err, nil)
		return nil, 0, err
	}

	query := r.db.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var offers []model.Offer
	if err := query.Find(&offers).Error; err != nil {
		logger.Error("Failed to list offers in database", err, nil)
		return nil, 0, err
	}
	return offers, total, nil
}

func (r *offerRepository) activeScope(now time.Time) *gorm.DB {
	return r.db.Where("is_active = ?", true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("expires_at IS NULL OR expires_at >= ?", now)
}

// GetActiveOffers returns switched-on offers whose window contains now, oldest first.
func (r *offerRepository) GetActiveOffers(now time.Time) ([]model.Offer, error) {
	var offers []model.Offer
	if err := r.activeScope(now).Order("id ASC").Find(&offers).Error; err != nil {
		logger.Error("Failed to find active offers in database", err, nil)
		return nil, err
	}

	logger.Debug("Active offers found in database", map[string]interface{}{
		"count": len(offers),
	})
	return offers, nil
}

func (r *offerRepository) GetUserUsageCount(offerID, userID uint) (int, error) {
	usage, err := r.GetUserUsage(offerID, userID)
	if err != nil {
		return 0, err
	}
	if usage == nil {
		return 0, nil
	}
	return usage.TimesUsed, nil
}

// GetUserUsage returns nil, nil when the user never redeemed the offer.
func (r *offerRepository) GetUserUsage(offerID, userID uint) (*model.OfferUsage, error) {
	var usage model.OfferUsage
	err := r.db.Where("offer_id = ? AND user_id = ?", offerID, userID).Limit(1).Find(&usage).Error
	if err != nil {
		logger.Error("Failed to find offer usage in database", err, map[string]interface{}{
			"offer_id": offerID,
			"user_id":  userID,
		})
		return nil, err
	}
	if usage.ID == 0 {
		return nil, nil
	}
	return &usage, nil
}

func (r *offerRepository) FindOrderOffers(orderID uint) ([]model.OrderOffer, error) {
	var snapshots []model.OrderOffer
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *offerRepository) Update(offer *model.Offer) error {
	logger.Debug("Updating offer in database", map[string]interface{}{
		"offer_id": offer.ID,
	})

	// times_used is owned by redemption; never overwrite it from an edit.
	if err := r.db.Omit("times_used").Save(offer).Error; err != nil {
		logger.Error("Failed to update offer in database", err, map[string]interface{}{
			"offer_id": offer.ID,
		})
		return err
	}
	return nil
}

func (r *offerRepository) Deactivate(id uint) error {
	result := r.db.Model(&model.Offer{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate offer in database", result.Error, map[string]interface{}{
			"offer_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateExpired switches off every active offer whose expires_at is before now.
func (r *offerRepository) DeactivateExpired(now time.Time) (int64, error) {
	result := r.db.Model(&model.Offer{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate expired offers in database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Expired offers deactivated in database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
