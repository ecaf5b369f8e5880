package domain

import "time"

// Product is a catalog entry for a spare part.
type Product struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	CategoryID  string    `bson:"category_id" json:"category_id"`
	Featured    bool      `bson:"featured" json:"featured"`
	Image       string    `bson:"image" json:"image"`
	Images      []string  `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Category is a named product grouping; listing order is insertion order.
type Category struct {
	ID   string `bson:"_id,omitempty" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Blog is an article with a single header image.
type Blog struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	Image     string    `bson:"image" json:"image"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
