// Package domain defines the persistence models for products, per-user view
// records, and aggregate product statistics, plus the read models served by
// the API. Persistence types are mapped with GORM and form the core data layer
// of the recently-viewed service.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Product is a catalog entry. Products are owned by the catalog, not by this
// service; they are read to validate views and to enrich responses.
//
// Fields:
//   - ID: opaque product identifier (primary key).
//   - Name, Description, Category, ImageURL: display data.
//   - Price: list price in the store currency.
//   - Features: free-form bullet points, stored as a JSON array.
type Product struct {
	ID          string                      `json:"id"          gorm:"type:varchar(64);primaryKey"`
	Name        string                      `json:"name"        gorm:"type:varchar(255);not null"`
	Description string                      `json:"description" gorm:"type:text"`
	Price       float64                     `json:"price"       gorm:"not null;default:0"`
	ImageURL    string                      `json:"imageUrl"    gorm:"type:varchar(1024)"`
	Category    string                      `json:"category"    gorm:"type:varchar(128);index"`
	Features    datatypes.JSONSlice[string] `json:"features"`
	CreatedAt   time.Time                   `json:"-"`
	UpdatedAt   time.Time                   `json:"-"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Details projects the product onto the display shape embedded in view
// entries.
func (p Product) Details() ProductDetails {
	features := []string(p.Features)
	if features == nil {
		features = []string{}
	}
	return ProductDetails{
		Name:        p.Name,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Description: p.Description,
		Features:    features,
	}
}

// ViewRecord is the durable record of a user's views of one product. At most
// one row exists per (user, product) pair; repeat views bump ViewCount and
// LastViewedAt in place.
//
// Fields:
//   - UserID / ProductID: composite primary key.
//   - ViewCount: number of committed views of the pair (>= 1).
//   - LastViewedAt: server-assigned time of the latest view; sole recency key.
//   - Product: FK association; view records cannot reference a missing product.
type ViewRecord struct {
	UserID       string    `json:"userId"       gorm:"type:varchar(128);primaryKey;index:idx_user_recency,priority:1"`
	ProductID    string    `json:"productId"    gorm:"type:varchar(64);primaryKey"`
	ViewCount    int64     `json:"viewCount"    gorm:"not null;default:1"`
	LastViewedAt time.Time `json:"lastViewedAt" gorm:"not null;index:idx_user_recency,priority:2"`

	Product Product `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ViewRecord.
func (ViewRecord) TableName() string { return "view_records" }

// ProductStat is the global view counter of a product across all users. It is
// created on the first view of the product and never deleted here.
type ProductStat struct {
	ProductID    string    `json:"productId"    gorm:"type:varchar(64);primaryKey"`
	ViewCount    int64     `json:"viewCount"    gorm:"not null;default:0;index:idx_stat_views"`
	LastViewedAt time.Time `json:"lastViewedAt" gorm:"not null"`

	Product Product `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ProductStat.
func (ProductStat) TableName() string { return "product_stats" }

// ProductDetails is the display data embedded in API responses.
type ProductDetails struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"imageUrl"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// ViewEntry is one element of a user's recently viewed list, enriched with
// the product's current details.
type ViewEntry struct {
	ProductID      string         `json:"productId"`
	ViewCount      int64          `json:"viewCount"`
	Timestamp      time.Time      `json:"timestamp"`
	ProductDetails ProductDetails `json:"productDetails"`
}

// TopProduct is one element of the global top-viewed ranking. Product
// details are flattened next to the counter.
type TopProduct struct {
	ProductID string `json:"productId"`
	ViewCount int64  `json:"viewCount"`
	ProductDetails
}
