package game

import (
	"math"
	"testing"
)

func TestSellPriceAllMultipliers(t *testing.T) {
	// $100 purchase, mint, specialty match, peak hour, neutral borough:
	// 100 * 0.8 * 1.8 * 1.8 * 1.2 = 311.04
	got := SellPriceCents(SellQuote{
		PurchasePriceCents: 100 * CentsPerDollar,
		Condition:          ConditionMint,
		ProductGenre:       "jazz",
		SpecialtyGenre:     "jazz",
		CurrentHour:        14,
		BoroughModifier:    1.0,
	})
	if got != 31104 {
		t.Fatalf("got %d want 31104", got)
	}
}

func TestSellPriceNoBonuses(t *testing.T) {
	// Fair condition, no specialty match, off-peak: only the sell-through
	// discount applies.
	got := SellPriceCents(SellQuote{
		PurchasePriceCents: 50 * CentsPerDollar,
		Condition:          ConditionFair,
		ProductGenre:       "punk",
		SpecialtyGenre:     "jazz",
		CurrentHour:        3,
		BoroughModifier:    1.0,
	})
	if got != 4000 {
		t.Fatalf("got %d want 4000", got)
	}
}

func TestSellPriceBaseFallback(t *testing.T) {
	// No purchase price: market price wins over catalog base.
	market := SellPriceCents(SellQuote{
		MarketPriceCents: 30 * CentsPerDollar,
		BasePriceCents:   90 * CentsPerDollar,
		Condition:        ConditionFair,
		CurrentHour:      1,
	})
	if market != 2400 {
		t.Fatalf("market fallback got %d want 2400", market)
	}

	// Neither purchase nor market: catalog base.
	base := SellPriceCents(SellQuote{
		BasePriceCents: 90 * CentsPerDollar,
		Condition:      ConditionFair,
		CurrentHour:    1,
	})
	if base != 7200 {
		t.Fatalf("base fallback got %d want 7200", base)
	}
}

func TestSellPriceSingleRounding(t *testing.T) {
	// Rounding happens once at the end, not per factor.
	q := SellQuote{
		PurchasePriceCents: 3333,
		Condition:          ConditionGood,
		CurrentHour:        1,
		BoroughModifier:    0.85,
	}
	want := int64(math.Round(3333 * 0.8 * 1.3 * 0.85))
	if got := SellPriceCents(q); got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestSellPriceZeroBoroughModifierDefaults(t *testing.T) {
	with := SellPriceCents(SellQuote{
		PurchasePriceCents: 1000,
		Condition:          ConditionFair,
		CurrentHour:        1,
		BoroughModifier:    1.0,
	})
	without := SellPriceCents(SellQuote{
		PurchasePriceCents: 1000,
		Condition:          ConditionFair,
		CurrentHour:        1,
	})
	if with != without {
		t.Fatalf("zero modifier should behave as 1.0: %d vs %d", without, with)
	}
}

func TestIsPeakHour(t *testing.T) {
	for _, h := range []int{12, 15, 18} {
		if !IsPeakHour(h) {
			t.Fatalf("hour %d should be peak", h)
		}
	}
	for _, h := range []int{0, 11, 19, 24} {
		if IsPeakHour(h) {
			t.Fatalf("hour %d should not be peak", h)
		}
	}
}

func TestPlainFlipLosesMoney(t *testing.T) {
	// With no condition, specialty, or peak bonus the sell-through discount
	// guarantees an immediate flip at the same store loses money.
	for _, cond := range []Condition{ConditionFair, ConditionPoor} {
		buyPrice := int64(4200)
		sell := SellPriceCents(SellQuote{
			PurchasePriceCents: buyPrice,
			Condition:          cond,
			ProductGenre:       "soul",
			SpecialtyGenre:     "rock",
			CurrentHour:        3,
			BoroughModifier:    1.0,
		})
		if sell >= buyPrice {
			t.Fatalf("cond=%s sell %d >= buy %d", cond, sell, buyPrice)
		}
	}
}

func TestHighGradeBonusesBeatDiscount(t *testing.T) {
	// Mint records at a specialty store during peak hours appreciate past the
	// sell-through discount. That spread is the trading game.
	buyPrice := int64(4200)
	sell := SellPriceCents(SellQuote{
		PurchasePriceCents: buyPrice,
		Condition:          ConditionMint,
		ProductGenre:       "jazz",
		SpecialtyGenre:     "jazz",
		CurrentHour:        15,
		BoroughModifier:    1.0,
	})
	if sell <= buyPrice {
		t.Fatalf("sell %d should exceed buy %d", sell, buyPrice)
	}
}

func TestRestockPriceExceedsSellPrice(t *testing.T) {
	sell := int64(3100)
	restock := RestockPriceCents(sell)
	if restock != 4650 {
		t.Fatalf("got %d want 4650", restock)
	}
	if restock <= sell {
		t.Fatalf("restock %d must exceed sell %d", restock, sell)
	}
}

func TestSeedListingPriceCents(t *testing.T) {
	got := SeedListingPriceCents(45*CentsPerDollar, 1.3, ConditionMint)
	want := int64(math.Round(4500 * 1.3 * 1.8))
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
	// Non-positive multiplier falls back to 1.0.
	if SeedListingPriceCents(1000, 0, ConditionFair) != 1000 {
		t.Fatalf("zero multiplier should behave as 1.0")
	}
}
