package model

// FeatureDimensions is D from spec.md §3: the fixed length of every
// product's binary feature vector. Configurable via FEATURE_DIMENSIONS
// for a feature-store migration, but the slot layout in package feature
// assumes the default of 26 (see §4.1 and DESIGN.md).
const FeatureDimensions = 26

// Product is an immutable-after-ingestion catalog row.
type Product struct {
	ProductID     string    `bson:"_id" json:"product_id"`
	Brand         string    `bson:"brand" json:"brand"`
	CategoryMain  string    `bson:"category_main" json:"category_main"`
	PrimaryColor  string    `bson:"primary_color" json:"primary_color"`
	Occasion      string    `bson:"occasion,omitempty" json:"occasion,omitempty"`
	Season        string    `bson:"season,omitempty" json:"season,omitempty"`
	Style         string    `bson:"style,omitempty" json:"style,omitempty"`
	Price         float64   `bson:"price" json:"price"`
	DisplayName   string    `bson:"display_name,omitempty" json:"display_name,omitempty"`
	ImageURL      string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	FeatureVector []int     `bson:"feature_vector" json:"feature_vector"`
}
