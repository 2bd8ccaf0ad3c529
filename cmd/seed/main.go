package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/catalog"
	"github.com/ikkim/storefront-backend/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	categoryService := service.NewCategoryService(categoryRepo)
	productService := service.NewProductService(productRepo, categoryRepo)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	rows, invalid, err := catalog.ReadRows(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, rowErr := range invalid {
		fmt.Printf("  skipping %v\n", rowErr)
	}
	fmt.Printf("Total products to import: %d (invalid rows: %d)\n", len(rows), len(invalid))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	result, err := catalog.Import(rows, productService, categoryService)
	if err != nil {
		log.Fatal("Import aborted:", err)
	}
	for _, rowErr := range result.Skipped {
		fmt.Printf("  skipped %v\n", rowErr)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Products created:   %d\n", result.Created)
	fmt.Printf("Categories created: %d\n", result.CategoriesCreated)
	fmt.Printf("Rows skipped:       %d\n", len(result.Skipped)+len(invalid))
}
