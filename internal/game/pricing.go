package game

import "math"

// SellQuote carries everything the pricing formula needs. All prices are in
// cents; zero means "unknown" for the two fallback fields.
type SellQuote struct {
	PurchasePriceCents int64
	MarketPriceCents   int64
	BasePriceCents     int64
	Condition          Condition
	ProductGenre       string
	SpecialtyGenre     string
	CurrentHour        int
	BoroughModifier    float64
}

// SellPriceCents is the price the player receives for one unit. Pure and
// deterministic: base price (purchase price, else current market price, else
// catalog base), sell-through discount, condition grade, store specialty,
// peak-hour bonus, borough modifier, rounded to the cent.
func SellPriceCents(q SellQuote) int64 {
	base := q.BasePriceCents
	if q.MarketPriceCents > 0 {
		base = q.MarketPriceCents
	}
	if q.PurchasePriceCents > 0 {
		base = q.PurchasePriceCents
	}

	price := float64(base) * SellThroughDiscount
	price *= q.Condition.Factor()
	if q.SpecialtyGenre != "" && q.SpecialtyGenre == q.ProductGenre {
		price *= SpecialtyBonus
	}
	if IsPeakHour(q.CurrentHour) {
		price *= PeakHourBonus
	}
	mod := q.BoroughModifier
	if mod <= 0 {
		mod = 1.0
	}
	price *= mod

	return int64(math.Round(price))
}

// RestockPriceCents is the listing price for stock created from a player
// sale. The markup keeps an immediate buy-back from ever being profitable.
func RestockPriceCents(sellPriceCents int64) int64 {
	return int64(math.Round(float64(sellPriceCents) * RestockMarkup))
}

// IsPeakHour reports whether the hours-remaining clock sits in the peak band.
func IsPeakHour(hour int) bool {
	return hour >= PeakHourStart && hour <= PeakHourEnd
}

// SeedListingPriceCents prices a fresh catalog listing when a market is
// seeded or restocked.
func SeedListingPriceCents(basePriceCents int64, storeMultiplier float64, cond Condition) int64 {
	if storeMultiplier <= 0 {
		storeMultiplier = 1.0
	}
	return int64(math.Round(float64(basePriceCents) * storeMultiplier * cond.Factor()))
}
