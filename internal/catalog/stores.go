package catalog

import (
	"regexp"
	"sort"
	"strings"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Store is a physical coffee shop.
type Store struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Name        Text        `json:"name"`
	Address     Text        `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Hours       Text        `json:"hours"`
	Phone       string      `json:"phone"`
	Features    []string    `json:"features"`
}

// LocalizedStore is a Store rendered in one locale.
type LocalizedStore struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Hours       string      `json:"hours"`
	Phone       string      `json:"phone"`
	Features    []string    `json:"features"`
}

// In renders s in locale l.
func (s Store) In(l Locale) LocalizedStore {
	return LocalizedStore{
		ID:          s.ID,
		Slug:        s.Slug,
		Name:        s.Name.In(l),
		Address:     s.Address.In(l),
		Coordinates: s.Coordinates,
		Hours:       s.Hours.In(l),
		Phone:       s.Phone,
		Features:    append([]string(nil), s.Features...),
	}
}

var stores = []Store{
	{
		ID:          "1",
		Slug:        "shibuya-crossing",
		Name:        Text{EN: "Uganda Coffee Shop - Shibuya", JA: "ウガンダコーヒーショップ - 渋谷"},
		Address:     Text{EN: "1-23-45 Shibuya, Shibuya-ku, Tokyo 150-0002", JA: "〒150-0002 東京都渋谷区渋谷1-23-45"},
		Coordinates: Coordinates{Lat: 35.6580, Lng: 139.7016},
		Hours:       Text{EN: "Mon-Sun: 7:00 AM - 10:00 PM", JA: "月〜日: 7:00 - 22:00"},
		Phone:       "03-1234-5678",
		Features:    []string{"wifi", "roastery", "espresso", "outdoor-seating"},
	},
	{
		ID:          "2",
		Slug:        "kyoto-higashiyama",
		Name:        Text{EN: "Uganda Coffee Shop - Kyoto", JA: "ウガンダコーヒーショップ - 京都東山"},
		Address:     Text{EN: "456 Higashiyama-ku, Kyoto 605-0001", JA: "〒605-0001 京都府京都市東山区456"},
		Coordinates: Coordinates{Lat: 35.0035, Lng: 135.7792},
		Hours:       Text{EN: "Mon-Sun: 8:00 AM - 6:00 PM", JA: "月〜日: 8:00 - 18:00"},
		Phone:       "075-123-4567",
		Features:    []string{"wifi", "pourover", "garden", "historic-building"},
	},
	{
		ID:          "3",
		Slug:        "osaka-umeda",
		Name:        Text{EN: "Uganda Coffee Shop - Osaka", JA: "ウガンダコーヒーショップ - 大阪梅田"},
		Address:     Text{EN: "7-8-9 Umeda, Kita-ku, Osaka 530-0001", JA: "〒530-0001 大阪府大阪市北区梅田7-8-9"},
		Coordinates: Coordinates{Lat: 34.7025, Lng: 135.4959},
		Hours:       Text{EN: "Mon-Sat: 7:30 AM - 9:00 PM", JA: "月〜土: 7:30 - 21:00"},
		Phone:       "06-1234-5678",
		Features:    []string{"wifi", "espresso", "pastries", "study-space"},
	},
	{
		ID:          "4",
		Slug:        "fukuoka-tenjin",
		Name:        Text{EN: "Uganda Coffee Shop - Fukuoka", JA: "ウガンダコーヒーショップ - 福岡天神"},
		Address:     Text{EN: "1-2-3 Tenjin, Chuo-ku, Fukuoka 810-0001", JA: "〒810-0001 福岡県福岡市中央区天神1-2-3"},
		Coordinates: Coordinates{Lat: 33.5902, Lng: 130.3989},
		Hours:       Text{EN: "Mon-Sun: 8:00 AM - 8:00 PM", JA: "月〜日: 8:00 - 20:00"},
		Phone:       "092-123-4567",
		Features:    []string{"wifi", "roastery", "pet-friendly", "terrace"},
	},
	{
		ID:          "5",
		Slug:        "yokohama-minatomirai",
		Name:        Text{EN: "Uganda Coffee Shop - Yokohama", JA: "ウガンダコーヒーショップ - 横浜みなとみらい"},
		Address:     Text{EN: "3-4-5 Minatomirai, Nishi-ku, Yokohama 220-0012", JA: "〒220-0012 神奈川県横浜市西区みなとみらい3-4-5"},
		Coordinates: Coordinates{Lat: 35.4548, Lng: 139.6312},
		Hours:       Text{EN: "Mon-Sun: 9:00 AM - 9:00 PM", JA: "月〜日: 9:00 - 21:00"},
		Phone:       "045-123-4567",
		Features:    []string{"wifi", "espresso", "sea-view", "outdoor-seating"},
	},
}

// Stores returns every store in display order.
func Stores() []Store {
	out := make([]Store, len(stores))
	copy(out, stores)
	return out
}

// StoreBySlug looks up a store.
func StoreBySlug(slug string) (Store, bool) {
	for _, s := range stores {
		if s.Slug == slug {
			return s, true
		}
	}
	return Store{}, false
}

// Location is an approximate visitor location, e.g. from IP geolocation.
type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

var (
	parenthesised = regexp.MustCompile(`\(.*?\)`)
	adminWords    = regexp.MustCompile(`\b(city|prefecture|ward|district|ku)\b`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]`)
)

func normalizeLocation(v string) string {
	v = strings.ToLower(v)
	v = parenthesised.ReplaceAllString(v, "")
	v = adminWords.ReplaceAllString(v, "")
	return nonAlnum.ReplaceAllString(v, "")
}

// ScoreLocationMatch rates how well label matches loc: 3 for a city match,
// 2 for a region match, 0 otherwise.
func ScoreLocationMatch(label string, loc *Location) int {
	if loc == nil {
		return 0
	}
	labelNorm := normalizeLocation(label)
	var cityNorm, regionNorm string
	if loc.City != "" {
		cityNorm = normalizeLocation(loc.City)
	}
	if loc.Region != "" {
		regionNorm = normalizeLocation(loc.Region)
	}

	if cityNorm != "" && (labelNorm == cityNorm || strings.Contains(labelNorm, cityNorm)) {
		return 3
	}
	if regionNorm != "" && strings.Contains(labelNorm, regionNorm) {
		return 2
	}
	return 0
}

// NearestStores orders stores by how well their English address matches
// loc. Ties keep display order.
func NearestStores(loc *Location) []Store {
	out := Stores()
	sort.SliceStable(out, func(i, j int) bool {
		return ScoreLocationMatch(out[i].Address.EN, loc) > ScoreLocationMatch(out[j].Address.EN, loc)
	})
	return out
}
