// Package catalog fabricates the synthetic product catalog used for seeding
// the database and the gateway's local mock.
package catalog

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"storefront/internal/models"
)

// DefaultSize is the number of products in a freshly seeded catalog
const DefaultSize = 1000

// Bounds of the generated fields
const (
	MinPrice     = 10.0
	MaxPrice     = 2000.0
	MinRating    = 3.0
	MaxRating    = 5.0
	MaxStock     = 200
	MaxReviews   = 5000
	nameIndexOff = 100
)

var adjectives = []string{
	"Premium", "Ultra", "Classic", "Modern", "Eco", "Smart", "Sleek", "Durable",
	"Professional", "Minimalist", "Elite", "Zen", "Power", "Titanium", "Aura",
}

var productTypes = map[string][]string{
	"Electronics": {"Headphones", "Speaker", "Monitor", "Keyboard", "Mouse", "Router", "Tablet", "Camera", "Drone", "Hub"},
	"Fashion":     {"Sneakers", "Jacket", "T-Shirt", "Jeans", "Dress", "Scarf", "Boots", "Hat", "Watch", "Belt"},
	"Home":        {"Desk", "Lamp", "Chair", "Vacuum", "Purifier", "Skillet", "Blender", "Fan", "Organizer", "Clock"},
	"Mobiles":     {"Smartphone", "Foldable", "Gaming Phone", "Budget Phone", "Charger", "Case", "Screen Protector"},
	"Accessories": {"Wallet", "Watch", "Bag", "Sunglasses", "Jewelry", "Cap", "Backpack"},
	"Grocery":     {"Coffee Beans", "Organic Honey", "Protein Bar", "Green Tea", "Pasta", "Olive Oil"},
	"Sports":      {"Dumbbells", "Yoga Mat", "Cycle", "Racket", "Ball", "Gym Bag", "Treadmill"},
	"Beauty":      {"Serum", "Moisturizer", "Perfume", "Lipstick", "Hair Dryer", "Shaving Kit"},
	"Appliances":  {"Refrigerator", "Microwave", "Washing Machine", "Air Conditioner", "Heater"},
	"Health":      {"Mask", "Thermometer", "Supplement", "Vitamins", "Sanitizer"},
	"Books":       {"Novel", "Biography", "Textbook", "Cookbook", "Comic", "Journal"},
}

var categoryImages = map[string]string{
	"Electronics": "https://images.unsplash.com/photo-1498049794561-7780e7231661",
	"Fashion":     "https://images.unsplash.com/photo-1523275335684-37898b6baf30",
	"Home":        "https://images.unsplash.com/photo-1513519245088-0e12902e5a38",
	"Mobiles":     "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9",
	"Accessories": "https://images.unsplash.com/photo-1584917865442-de89df76afd3",
	"Grocery":     "https://images.unsplash.com/photo-1542838132-92c53300491e",
	"Sports":      "https://images.unsplash.com/photo-1517836357463-d25dfeac3438",
	"Beauty":      "https://images.unsplash.com/photo-1522335789203-aabd1fc54bc9",
	"Appliances":  "https://images.unsplash.com/photo-1584622650111-993a426fbf0a",
	"Health":      "https://images.unsplash.com/photo-1584036561566-baf8f5f1b144",
	"Books":       "https://images.unsplash.com/photo-1495446815901-a7297e633e8d",
}

const defaultImage = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e"

// Generate builds n products with IDs "1".."n". A nil rng uses a time-seeded source.
func Generate(n int, rng *rand.Rand) []models.Product {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	products := make([]models.Product, 0, n)
	for i := 1; i <= n; i++ {
		category := models.Categories[rng.Intn(len(models.Categories))]
		types := productTypes[category]
		if len(types) == 0 {
			types = []string{"Item"}
		}
		kind := types[rng.Intn(len(types))]
		adj := adjectives[rng.Intn(len(adjectives))]

		name := fmt.Sprintf("%s %s %d", adj, kind, nameIndexOff+i)
		image, ok := categoryImages[category]
		if !ok {
			image = defaultImage
		}

		products = append(products, models.Product{
			ID:   strconv.Itoa(i),
			Name: name,
			Description: fmt.Sprintf(
				"Experience the future of %s with the %s. Crafted for quality and performance, this %s features %s materials and innovative design.",
				strings.ToLower(category), name, strings.ToLower(kind), strings.ToLower(adj)),
			Price:        round(MinPrice+rng.Float64()*(MaxPrice-MinPrice), 2),
			Category:     category,
			Image:        fmt.Sprintf("%s?auto=format&fit=crop&q=80&w=600&sig=%d", image, i),
			Rating:       round(MinRating+rng.Float64()*(MaxRating-MinRating), 1),
			ReviewsCount: rng.Intn(MaxReviews),
			Stock:        rng.Intn(MaxStock),
			Tags:         []string{strings.ToLower(category), strings.ToLower(kind), strings.ToLower(adj)},
		})
	}
	return products
}

// SeedReviews returns the fixed set of reviews shipped with the catalog
func SeedReviews() []models.Review {
	return []models.Review{
		{ID: "r1", ProductID: "1", UserName: "John Doe", Rating: 5, Comment: "Exceptional quality. Definitely worth the price!", Date: "2024-03-15"},
		{ID: "r2", ProductID: "1", UserName: "Jane Smith", Rating: 4, Comment: "Great features, though I wish the battery lasted just a bit longer.", Date: "2024-03-10"},
		{ID: "r3", ProductID: "2", UserName: "Alice Runner", Rating: 5, Comment: "The performance is unmatched in this category.", Date: "2024-02-28"},
		{ID: "r4", ProductID: "4", UserName: "TechGuru", Rating: 5, Comment: "Top tier hardware. The display is absolutely gorgeous.", Date: "2024-04-01"},
	}
}

// Matches applies the catalog search contract: category must match exactly unless
// empty or "All", and a non-empty trimmed query must be a case-insensitive substring
// of the name or of any tag.
func Matches(p models.Product, query, category string) bool {
	if category != "" && category != models.CategoryAll && p.Category != category {
		return false
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Filter returns at most limit products matching query and category, in catalog order.
// A limit <= 0 means unbounded.
func Filter(products []models.Product, query, category string, limit int) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range products {
		if !Matches(p, query, category) {
			continue
		}
		out = append(out, models.CloneProduct(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
