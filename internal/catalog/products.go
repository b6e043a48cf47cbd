// Package catalog holds the static product and store tables of the shop.
package catalog

import "strings"

// Locale is a supported display language.
type Locale string

// Supported locales.
const (
	English  Locale = "en"
	Japanese Locale = "ja"
)

// ParseLocale maps a request value such as "ja" or "ja-JP" to a supported
// locale, defaulting to English.
func ParseLocale(s string) Locale {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), string(Japanese)) {
		return Japanese
	}
	return English
}

// Text is a string in both locales.
type Text struct {
	EN string `json:"en"`
	JA string `json:"ja"`
}

// In returns the text for l.
func (t Text) In(l Locale) string {
	if l == Japanese {
		return t.JA
	}
	return t.EN
}

// Product categories.
const (
	CategoryLiquid = "liquid"
	CategoryDrip   = "drip"
	CategoryBeans  = "beans"
	CategoryGround = "ground"
	CategoryGifts  = "gifts"
)

// Product is one catalog entry. Price is in yen.
type Product struct {
	ID          int    `json:"id"`
	Slug        string `json:"slug"`
	Name        Text   `json:"name"`
	Description Text   `json:"description"`
	Price       int    `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

var products = []Product{
	{
		ID:   1,
		Slug: "liquid-coffee-1l",
		Name: Text{
			EN: "Terimba Coffee Organic Liquid Coffee (1L)",
			JA: "テリンバコーヒー オーガニック リキッドコーヒー（1L）",
		},
		Description: Text{
			EN: "100% natural, unsweetened liquid coffee made from organic Ugandan coffee beans. Perfect for drinking straight, with milk, or for café and commercial use.",
			JA: "ウガンダ産オーガニック豆を使用した、100％ナチュラルな無糖リキッドコーヒー。そのまま飲んでも、ミルクやアレンジにも最適。業務用にもおすすめ。",
		},
		Price:    2480,
		Image:    "/images/products/liquid-coffee-1l.jpg",
		Category: CategoryLiquid,
	},
	{
		ID:   2,
		Slug: "drip-coffee-box-10",
		Name: Text{
			EN: "Terimba Coffee Organic Drip Coffee Pack (Ground) – Box of 10",
			JA: "テリンバコーヒー オーガニック ドリップパック（粉）10パック／1箱",
		},
		Description: Text{
			EN: "Convenient single-serve drip coffee packs made from organic Ugandan coffee. Ideal for home, office, or as a gift.",
			JA: "1杯ずつ手軽に楽しめるドリップタイプ。ウガンダ産オーガニックコーヒーの豊かな香りとコクを、ご家庭やギフトに。",
		},
		Price:    3300,
		Image:    "/images/products/drip-coffee-box.jpg",
		Category: CategoryDrip,
	},
	{
		ID:   3,
		Slug: "ground-coffee-100g",
		Name: Text{
			EN: "Terimba Coffee Organic Ground Coffee (100g)",
			JA: "テリンバコーヒー オーガニック 粉コーヒー（100g）",
		},
		Description: Text{
			EN: "Washed process, medium roast organic coffee. Smooth, well-balanced flavor suitable for daily brewing.",
			JA: "ウォッシュド製法・ミディアムロースト。バランスの取れた酸味とコクが特徴の、毎日飲みやすい粉タイプ。",
		},
		Price:    1650,
		Image:    "/images/products/ground-coffee-100g.jpg",
		Category: CategoryGround,
	},
	{
		ID:   4,
		Slug: "drip-coffee-single-10g",
		Name: Text{
			EN: "Terimba Coffee Organic Drip Coffee Pack (10g)",
			JA: "テリンバコーヒー オーガニック ドリップパック（粉）10g",
		},
		Description: Text{
			EN: "Single-serve drip coffee pack, easy to carry and brew anywhere. Perfect for travel, office, or outdoor use.",
			JA: "持ち運びに便利な1杯分ドリップパック。アウトドア、オフィス、旅行にも最適。",
		},
		Price:    350,
		Image:    "/images/products/drip-coffee-single.jpg",
		Category: CategoryDrip,
	},
	{
		ID:   5,
		Slug: "coffee-beans-100g",
		Name: Text{
			EN: "Terimba Coffee Organic Coffee Beans (100g)",
			JA: "テリンバコーヒー オーガニック コーヒー豆（100g）",
		},
		Description: Text{
			EN: "Whole organic coffee beans from Uganda. Ideal for customers who prefer freshly ground coffee.",
			JA: "ウガンダ産オーガニック豆を使用。挽きたての香りを楽しみたい方におすすめの豆タイプ。",
		},
		Price:    1650,
		Image:    "/images/products/coffee-beans-100g.jpg",
		Category: CategoryBeans,
	},
}

// Products returns the catalog in display order. The slice is a copy.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// ByID looks up a product.
func ByID(id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Filter returns the products in category, or all of them for "" and "all".
func Filter(category string) []Product {
	if category == "" || category == "all" {
		return Products()
	}
	var out []Product
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns "all" followed by each category in first-seen order.
func Categories() []string {
	out := []string{"all"}
	seen := map[string]bool{}
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}
