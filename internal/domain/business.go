package domain

import "time"

type Business struct {
	BusinessID    string    `json:"id" dynamodbav:"business_id"`
	Name          string    `json:"name" dynamodbav:"name"`
	Type          string    `json:"type" dynamodbav:"type"`
	Category      string    `json:"category" dynamodbav:"category"`
	Subcategory   string    `json:"subcategory" dynamodbav:"subcategory"`
	City          string    `json:"city" dynamodbav:"city"`
	Quartier      string    `json:"quartier" dynamodbav:"quartier"`
	Location      string    `json:"location" dynamodbav:"location"`
	Description   string    `json:"description" dynamodbav:"description"`
	Phone         string    `json:"phone,omitempty" dynamodbav:"phone"`
	Website       string    `json:"website,omitempty" dynamodbav:"website"`
	Amenities     []string  `json:"amenities" dynamodbav:"amenities"`
	Tags          []string  `json:"tags" dynamodbav:"tags"`
	OverallRating float64   `json:"overall_rating" dynamodbav:"overall_rating"`
	IsFeatured    bool      `json:"is_featured" dynamodbav:"is_featured"`
	LogoURL       string    `json:"logo_url,omitempty" dynamodbav:"logo_url"`
	CoverURL      string    `json:"cover_url,omitempty" dynamodbav:"cover_url"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}
