package domain

// SubscriptionDiscountPercent is the discount applied in subscribe mode.
const SubscriptionDiscountPercent = 10

// PriceModifiers are the display conditions that affect how a price renders.
type PriceModifiers struct {
	MemberActive       bool `json:"memberActive"`
	SubscriptionActive bool `json:"subscriptionActive"`
}

// DisplayPrice projects a base yen price through the modifiers. Subscription
// takes 10% off, floored to the yen. Member status never changes the number.
func DisplayPrice(base int, mods PriceModifiers) int {
	if !mods.SubscriptionActive {
		return base
	}
	discounted := base * (100 - SubscriptionDiscountPercent)
	// floor division, also for negative inputs
	q := discounted / 100
	if discounted%100 != 0 && discounted < 0 {
		q--
	}
	return q
}

// PriceTag is everything needed to render a price.
type PriceTag struct {
	Price             int  `json:"price"`
	Original          int  `json:"original"`
	Discounted        bool `json:"discounted"`
	MemberBadge       bool `json:"memberBadge"`
	SubscriptionBadge bool `json:"subscriptionBadge"`
}

// Tag builds the PriceTag for base under mods.
func Tag(base int, mods PriceModifiers) PriceTag {
	price := DisplayPrice(base, mods)
	return PriceTag{
		Price:             price,
		Original:          base,
		Discounted:        price != base,
		MemberBadge:       mods.MemberActive,
		SubscriptionBadge: mods.SubscriptionActive,
	}
}
