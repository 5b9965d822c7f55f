package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/domain"
)

const placeholderImage = "https://via.placeholder.com/400"

// SampleProducts returns the demo catalog loaded when SEED_PRODUCTS is set.
func SampleProducts() []domain.Product {
	return []domain.Product{
		{
			ID: "product1", Name: "Premium Headphones", Price: 299.99, Category: "Electronics",
			Description: "Wireless over-ear headphones with studio sound",
			ImageURL:    placeholderImage,
			Features:    []string{"Active noise cancellation", "30-hour battery life", "Premium sound quality"},
		},
		{
			ID: "product2", Name: "Smart Watch", Price: 249.99, Category: "Electronics",
			Description: "Feature-rich smartwatch with health monitoring",
			ImageURL:    placeholderImage,
			Features:    []string{"Heart rate monitoring", "Sleep tracking", "Water resistant"},
		},
		{
			ID: "product3", Name: "Laptop Backpack", Price: 129.99, Category: "Accessories",
			Description: "Durable laptop backpack with multiple compartments",
			ImageURL:    placeholderImage,
			Features:    []string{"Water resistant", "Multiple compartments", "Padded laptop sleeve"},
		},
		{
			ID: "product4", Name: "Mechanical Keyboard", Price: 159.99, Category: "Electronics",
			Description: "Hot-swappable mechanical keyboard",
			ImageURL:    placeholderImage,
			Features:    []string{"Tactile switches", "RGB backlight", "USB-C"},
		},
		{
			ID: "product5", Name: "Desk Lamp", Price: 49.99, Category: "Home",
			Description: "Dimmable LED desk lamp",
			ImageURL:    placeholderImage,
			Features:    []string{"Five brightness levels", "Warm and cool light", "Touch control"},
		},
		{
			ID: "product6", Name: "Premium Bag", Price: 599.99, Category: "Electronics",
			Description: "High-quality laptop bag",
			ImageURL:    placeholderImage,
			Features:    []string{"Active noise cancellation", "30-hour battery life", "Premium sound quality"},
		},
		{
			ID: "product7", Name: "Smart Tab", Price: 499.99, Category: "Electronics",
			Description: "Feature-rich smart tab with health monitoring",
			ImageURL:    placeholderImage,
			Features:    []string{"Heart rate monitoring", "Sleep tracking", "Water resistant"},
		},
		{
			ID: "product8", Name: "Laptop Backpack 2", Price: 179.99, Category: "Accessories",
			Description: "Durable laptop backpack with multiple compartments",
			ImageURL:    placeholderImage,
			Features:    []string{"Water resistant", "Multiple compartments", "Padded laptop sleeve"},
		},
		{
			ID: "product9", Name: "Laptop Backpack 3", Price: 239.99, Category: "Accessories",
			Description: "Durable laptop backpack with multiple compartments",
			ImageURL:    placeholderImage,
			Features:    []string{"Water resistant", "Multiple compartments", "Padded laptop sleeve"},
		},
		{
			ID: "product10", Name: "Smart Tab 3", Price: 599.99, Category: "Electronics",
			Description: "Feature-rich smart tab with health monitoring",
			ImageURL:    placeholderImage,
			Features:    []string{"Heart rate monitoring", "Sleep tracking", "Water resistant"},
		},
		{
			ID: "product11", Name: "Travel Mug", Price: 24.99, Category: "Home",
			Description: "Insulated stainless steel travel mug",
			ImageURL:    placeholderImage,
			Features:    []string{"Keeps drinks hot for 12 hours", "Leak proof lid", "Dishwasher safe"},
		},
	}
}

// SeedProducts upserts the demo catalog.
func SeedProducts(ctx context.Context, db *gorm.DB) error {
	return UpsertProducts(ctx, db, SampleProducts())
}
