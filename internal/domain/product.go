package domain

// ProductSnapshot is the subset of a product a cart line keeps as a copy.
// Price is in minor currency units.
type ProductSnapshot struct {
	ID       string `bson:"id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Brand    string `bson:"brand,omitempty" json:"brand,omitempty"`
	Price    int64  `bson:"price" json:"price"`
	ImageURL string `bson:"image_url,omitempty" json:"image_url,omitempty"`
}
