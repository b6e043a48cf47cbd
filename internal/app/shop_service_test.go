package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
	"storefront/internal/domain"
)

func TestShopService_List(t *testing.T) {
	svc := NewShopService()

	all := svc.List(catalog.English, "all", domain.PriceModifiers{})
	assert.Len(t, all, len(catalog.Products()))

	drip := svc.List(catalog.Japanese, catalog.CategoryDrip, domain.PriceModifiers{SubscriptionActive: true})
	require.NotEmpty(t, drip)
	for _, c := range drip {
		assert.Equal(t, catalog.CategoryDrip, c.Category)
		assert.True(t, c.Price.Discounted)
		assert.Less(t, c.Price.Price, c.Price.Original)
	}

	assert.Empty(t, svc.List(catalog.English, "tea", domain.PriceModifiers{}))
}

func TestShopService_ListLocalizes(t *testing.T) {
	svc := NewShopService()
	p := catalog.Products()[0]

	en := svc.List(catalog.English, "", domain.PriceModifiers{})[0]
	ja := svc.List(catalog.Japanese, "", domain.PriceModifiers{})[0]
	assert.Equal(t, p.Name.EN, en.Name)
	assert.Equal(t, p.Name.JA, ja.Name)
}

func TestShopService_AddToCart(t *testing.T) {
	svc := NewShopService()
	cart := domain.NewCart()
	p := catalog.Products()[0]

	item, err := svc.AddToCart(cart, p.ID, 0, catalog.English, domain.PriceModifiers{SubscriptionActive: true, MemberActive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, domain.DisplayPrice(p.Price, domain.PriceModifiers{SubscriptionActive: true}), item.UnitPrice)

	_, err = svc.AddToCart(cart, p.ID, 2, catalog.English, domain.PriceModifiers{SubscriptionActive: true})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Count())

	_, err = svc.AddToCart(cart, 999, 1, catalog.English, domain.PriceModifiers{})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Len(t, cart.Items(), 1)
}

func TestShopService_Categories(t *testing.T) {
	cats := NewShopService().Categories()
	require.NotEmpty(t, cats)
	assert.Equal(t, "all", cats[0])
}
