package main

import (
	"fmt"
	"log"

	"github.com/sventech/prodline/internal/config"
	"github.com/sventech/prodline/internal/database"
	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/utils"
)

func main() {
	fmt.Println("🌱 prodline Demo Data Seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")

	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductionStep{},
		&models.Unit{},
		&models.StepCompletion{},
		&models.FirmwareInstallRecord{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")

	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount > 0 {
		fmt.Printf("⚠️  Database already has %d products. Clear it first? (y/N): ", productCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		db.Exec("DELETE FROM step_completions")
		db.Exec("DELETE FROM firmware_install_records")
		db.Exec("DELETE FROM units")
		db.Exec("DELETE FROM production_steps")
		db.Exec("DELETE FROM product_variants")
		db.Exec("DELETE FROM products")
	}

	// Demo catalog
	products := []struct {
		code     string
		name     string
		variants []string
		steps    []string
	}{
		{
			code:     "PROD1",
			name:     "SmartVent Mk1",
			variants: []string{"EU", "US"},
			steps:    []string{"Board assembly", "Firmware flash", "Final QA"},
		},
		{
			code:     "PROD2",
			name:     "SmartVent Mk2",
			variants: []string{"EU"},
			steps:    []string{"Board assembly", "Enclosure fitting", "Firmware flash", "Calibration", "Final QA"},
		},
	}

	for _, p := range products {
		product := models.Product{Code: p.code, Name: p.name, Active: true}
		if err := db.Create(&product).Error; err != nil {
			log.Fatalf("❌ Failed to create product %s: %v", p.code, err)
		}

		for _, v := range p.variants {
			variant := models.ProductVariant{
				ProductID: product.ID,
				SKU:       fmt.Sprintf("%s-%s", p.code, v),
				Name:      v,
			}
			if err := db.Create(&variant).Error; err != nil {
				log.Fatalf("❌ Failed to create variant: %v", err)
			}
		}

		for i, name := range p.steps {
			step := models.ProductionStep{
				ProductID: product.ID,
				StepOrder: i + 1,
				Name:      name,
			}
			if err := db.Create(&step).Error; err != nil {
				log.Fatalf("❌ Failed to create step: %v", err)
			}
		}

		fmt.Printf("✅ Product %s: %d variants, %d steps\n", p.code, len(p.variants), len(p.steps))
	}

	// Demo admin user
	var adminCount int64
	db.Model(&models.UserAuth{}).Where("username = ?", "admin").Count(&adminCount)
	if adminCount == 0 {
		hashed, err := utils.HashPassword("admin")
		if err != nil {
			log.Fatalf("❌ Failed to hash admin password: %v", err)
		}
		admin := models.UserAuth{
			Username: "admin",
			Email:    "admin@factory.local",
			Password: hashed,
			Name:     "Administrator",
			Role:     "admin",
		}
		if err := db.Create(&admin).Error; err != nil {
			log.Fatalf("❌ Failed to create admin user: %v", err)
		}
		fmt.Println("✅ Admin user created (admin / admin)")
	}

	fmt.Println("🎉 Seeding complete")
}
