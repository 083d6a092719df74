package game

import "testing"

func TestParseCondition(t *testing.T) {
	for _, s := range []string{"mint", "Good", " FAIR ", "poor"} {
		if _, err := ParseCondition(s); err != nil {
			t.Fatalf("expected condition %q to parse: %v", s, err)
		}
	}
	for _, s := range []string{"", "near-mint", "excellent"} {
		if _, err := ParseCondition(s); err == nil {
			t.Fatalf("expected condition %q to fail", s)
		}
	}
}

func TestConditionFactorOrdering(t *testing.T) {
	if !(ConditionMint.Factor() > ConditionGood.Factor() &&
		ConditionGood.Factor() > ConditionFair.Factor() &&
		ConditionFair.Factor() > ConditionPoor.Factor()) {
		t.Fatalf("condition factors must be strictly ordered by grade")
	}
	// Unknown grades price as fair.
	if Condition("scratched").Factor() != 1.0 {
		t.Fatalf("unknown condition should fall back to 1.0")
	}
}

func TestBuyCostCents(t *testing.T) {
	got, err := BuyCostCents(2500, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10000 {
		t.Fatalf("got %d want 10000", got)
	}

	if _, err := BuyCostCents(2500, 0); err == nil {
		t.Fatalf("expected zero quantity to fail")
	}
	if _, err := BuyCostCents(2500, MaxQuantityPerTrade+1); err == nil {
		t.Fatalf("expected oversized quantity to fail")
	}
	if _, err := BuyCostCents(-1, 1); err == nil {
		t.Fatalf("expected negative price to fail")
	}
	if _, err := BuyCostCents(1<<62, 4); err == nil {
		t.Fatalf("expected overflow to fail")
	}
}

func TestValidateHandle(t *testing.T) {
	for _, h := range []string{"crate_digger", "DJNorth99", "a"} {
		if err := validateHandle(h); err != nil {
			t.Fatalf("expected handle %q to be valid: %v", h, err)
		}
	}
	for _, h := range []string{"", "has spaces", "way_too_long_for_a_handle_x", "emoji☂"} {
		if err := validateHandle(h); err == nil {
			t.Fatalf("expected handle %q to fail", h)
		}
	}
}

func TestDollarsCentsRoundTrip(t *testing.T) {
	if DollarsToCents(19.99) != 1999 {
		t.Fatalf("got %d want 1999", DollarsToCents(19.99))
	}
	if CentsToDollars(1999) != 19.99 {
		t.Fatalf("got %f want 19.99", CentsToDollars(1999))
	}
}
