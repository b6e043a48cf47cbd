package app

import (
	"errors"

	"storefront/internal/catalog"
	"storefront/internal/domain"
)

// ErrProductNotFound indicates that the requested product is not in the
// catalog.
var ErrProductNotFound = errors.New("product not found")

// ProductCard is a catalog entry localized and priced for one client.
type ProductCard struct {
	ID          int             `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Price       domain.PriceTag `json:"price"`
}

// ShopService encapsulates catalog browsing and add-to-cart use cases.
type ShopService struct{}

// NewShopService creates a ShopService over the static catalog.
func NewShopService() *ShopService {
	return &ShopService{}
}

// List returns the products of category in locale, priced under mods.
func (s *ShopService) List(locale catalog.Locale, category string, mods domain.PriceModifiers) []ProductCard {
	products := catalog.Filter(category)
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, card(p, locale, mods))
	}
	return cards
}

// Categories returns the category filter options.
func (s *ShopService) Categories() []string {
	return catalog.Categories()
}

// AddToCart adds qty of a product to cart at its display price and returns
// the line that was added.
func (s *ShopService) AddToCart(cart *domain.Cart, productID, qty int, locale catalog.Locale, mods domain.PriceModifiers) (domain.CartLineItem, error) {
	p, ok := catalog.ByID(productID)
	if !ok {
		return domain.CartLineItem{}, ErrProductNotFound
	}
	if qty < 1 {
		qty = 1
	}
	item := domain.CartLineItem{
		ID:        p.ID,
		Name:      p.Name.In(locale),
		UnitPrice: domain.DisplayPrice(p.Price, mods),
		Image:     p.Image,
		Category:  p.Category,
		Quantity:  qty,
	}
	cart.Add(item)
	return item, nil
}

func card(p catalog.Product, locale catalog.Locale, mods domain.PriceModifiers) ProductCard {
	return ProductCard{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name.In(locale),
		Description: p.Description.In(locale),
		Image:       p.Image,
		Category:    p.Category,
		Price:       domain.Tag(p.Price, mods),
	}
}
