package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a manufacturable product line (e.g. "PROD1").
// Code is the short uppercase token embedded in unit serial numbers.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"unique;not null" json:"code"`
	Name      string         `gorm:"not null" json:"name"`
	Active    bool           `gorm:"default:true" json:"active"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Steps    []ProductionStep `gorm:"foreignKey:ProductID" json:"steps,omitempty"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// ProductVariant is a sellable variation of a product (color, region SKU, ...)
type ProductVariant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"index;not null" json:"productId"`
	SKU       string         `gorm:"unique" json:"sku"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for ProductVariant
func (ProductVariant) TableName() string {
	return "product_variants"
}

// ProductionStep is one ordered unit of manufacturing work defined per product.
// StepOrder is unique within a product; the step set is the denominator for
// automatic production completion.
type ProductionStep struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"not null;uniqueIndex:idx_product_step_order" json:"productId"`
	StepOrder int            `gorm:"not null;uniqueIndex:idx_product_step_order" json:"stepOrder"`
	Name      string         `gorm:"not null" json:"name"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for ProductionStep
func (ProductionStep) TableName() string {
	return "production_steps"
}
