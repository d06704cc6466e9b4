package models

import "time"

// DigestLine is the per-product row of an archived end-of-day digest.
type DigestLine struct {
	ProductName string `bson:"product_name" json:"product_name"`
	Produced    int    `bson:"produced" json:"produced"`
	Sold        int    `bson:"sold" json:"sold"`
	Unsold      int    `bson:"unsold" json:"unsold"`
	Revenue     string `bson:"revenue" json:"revenue"`
}

// DailyDigest is the end-of-day summary archived to MongoDB and exported to Sheets.
// Monetary values are stored as strings to keep decimal precision.
type DailyDigest struct {
	Day              string       `bson:"day" json:"day"`
	Timezone         string       `bson:"timezone" json:"timezone"`
	TotalRevenue     string       `bson:"total_revenue" json:"total_revenue"`
	TotalUnsoldValue string       `bson:"total_unsold_value" json:"total_unsold_value"`
	TotalItemsSold   int          `bson:"total_items_sold" json:"total_items_sold"`
	TotalProduced    int          `bson:"total_produced" json:"total_produced"`
	Lines            []DigestLine `bson:"lines" json:"lines"`
	GeneratedAt      time.Time    `bson:"generated_at" json:"generated_at"`
}
