package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	CentsPerDollar = int64(100)

	StarterCashCents         = int64(2_000) * CentsPerDollar
	DefaultInventoryCapacity = 100
	DefaultMaxHours          = 24
	MaxPlayersPerGame        = 8

	// Action points per hour; travel consumes its hoursConsumed in points,
	// buying and selling are free.
	ActionsPerHour = 4

	MaxQuantityPerTrade = 100

	LoanInterestPerHour = 0.05
	MaxLoanCents        = int64(5_000) * CentsPerDollar

	SellThroughDiscount = 0.8
	SpecialtyBonus      = 1.8
	PeakHourBonus       = 1.2
	RestockMarkup       = 1.5

	// Peak band on the hours-remaining clock, inclusive.
	PeakHourStart = 12
	PeakHourEnd   = 18

	// Cost per unit of distance for distance-based transports.
	DistanceCostCentsPerUnit = 50
)

var (
	ErrGameNotFound           = errors.New("game not found")
	ErrPlayerNotFound         = errors.New("player not found in game")
	ErrStoreNotFound          = errors.New("store not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrTransportNotFound      = errors.New("transport not found")
	ErrBoroughNotFound        = errors.New("borough not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrOutOfStock             = errors.New("listing out of stock")
	ErrInventoryFull          = errors.New("not enough inventory space")
	ErrItemNotFound           = errors.New("inventory item not found")
	ErrQuantityExceedsHolding = errors.New("quantity exceeds holding")
	ErrOutOfRange             = errors.New("destination out of transport range")
	ErrInvalidState           = errors.New("operation not valid in current game state")
	ErrAlreadyJoined          = errors.New("account already joined this game")
	ErrGameFull               = errors.New("game is full")
	ErrDuplicateIdempotency   = errors.New("duplicate idempotency key")
	ErrTxConflict             = errors.New("transaction conflict, please retry")
	ErrInternalInconsistency  = errors.New("internal consistency violation")
)

// Game lifecycle states.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Condition is the quality grade of a record, ordered by desirability.
type Condition string

const (
	ConditionMint Condition = "mint"
	ConditionGood Condition = "good"
	ConditionFair Condition = "fair"
	ConditionPoor Condition = "poor"
)

var conditionFactors = map[Condition]float64{
	ConditionMint: 1.8,
	ConditionGood: 1.3,
	ConditionFair: 1.0,
	ConditionPoor: 0.7,
}

func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := conditionFactors[c]; !ok {
		return "", fmt.Errorf("unknown condition %q", s)
	}
	return c, nil
}

// Factor is the pricing multiplier for the grade.
func (c Condition) Factor() float64 {
	f, ok := conditionFactors[c]
	if !ok {
		return 1.0
	}
	return f
}

func (c Condition) Valid() bool {
	_, ok := conditionFactors[c]
	return ok
}

func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerDollar)))
}

func CentsToDollars(v int64) float64 {
	return float64(v) / float64(CentsPerDollar)
}

// BuyCostCents is the total cost of qty units at the listing price.
func BuyCostCents(priceCents int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("quantity must be > 0")
	}
	if qty > MaxQuantityPerTrade {
		return 0, fmt.Errorf("quantity exceeds per-trade maximum of %d", MaxQuantityPerTrade)
	}
	if priceCents < 0 {
		return 0, fmt.Errorf("negative listing price")
	}
	total := priceCents * int64(qty)
	if priceCents != 0 && total/priceCents != int64(qty) {
		return 0, fmt.Errorf("cost overflow")
	}
	return total, nil
}

func validateHandle(handle string) error {
	clean := strings.TrimSpace(handle)
	if clean == "" {
		return fmt.Errorf("handle is required")
	}
	if len(clean) > 24 {
		return fmt.Errorf("handle too long (max 24 chars)")
	}
	for _, r := range clean {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return fmt.Errorf("handle may only contain letters, digits and underscores")
	}
	return nil
}
