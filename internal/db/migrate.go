package db

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Offer{},
		&model.OfferUsage{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderOffer{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed writes a default welcome offer when the offers table is empty.
func Seed(database *gorm.DB) error {
	logger.Info("Seeding initial data...")

	if err := seedWelcomeOffer(database); err != nil {
		logger.Error("Failed to seed welcome offer", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedWelcomeOffer(database *gorm.DB) error {
	var count int64
	if err := database.Model(&model.Offer{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Offers already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	code := "WELCOME10"
	perUser := 1
	return database.Create(&model.Offer{
		Name:           "Welcome 10% off",
		Code:           &code,
		Description:    "10% off your first order",
		Type:           model.OfferTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MaxUsesPerUser: &perUser,
		IsActive:       true,
		ApplyTo:        model.OfferScopeAll,
	}).Error
}
