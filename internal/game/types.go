package game

import "time"

type CreateGameInput struct {
	AccountID      int64
	Handle         string
	MaxHours       int
	IdempotencyKey string
}

type CreateGameResult struct {
	GameID   int64 `json:"game_id"`
	PlayerID int64 `json:"player_id"`
}

type JoinGameInput struct {
	AccountID      int64
	GameID         int64
	Handle         string
	IdempotencyKey string
}

type JoinGameResult struct {
	PlayerID int64 `json:"player_id"`
}

type StartGameInput struct {
	AccountID      int64
	GameID         int64
	IdempotencyKey string
}

type BuyInput struct {
	AccountID      int64
	GameID         int64
	StoreID        int64
	ProductID      int64
	Quantity       int
	ListingID      int64 // optional disambiguator; 0 means cheapest listing for (store, product)
	IdempotencyKey string
}

type BuyResult struct {
	UnitPriceCents int64   `json:"unit_price_cents"`
	TotalCents     int64   `json:"total_cents"`
	CashCents      int64   `json:"cash_cents"`
	ItemIDs        []int64 `json:"item_ids"`
}

type SellInput struct {
	AccountID       int64
	GameID          int64
	StoreID         int64
	ProductID       int64
	Quantity        int
	InventoryItemID int64 // optional disambiguator; 0 means first matching product
	IdempotencyKey  string
}

type SellResult struct {
	UnitPriceCents int64   `json:"unit_price_cents"`
	TotalCents     int64   `json:"total_cents"`
	CashCents      int64   `json:"cash_cents"`
	SoldItemIDs    []int64 `json:"sold_item_ids"`
}

type TravelInput struct {
	AccountID      int64
	GameID         int64
	BoroughID      int64
	TransportID    int64
	IdempotencyKey string
}

type TravelResult struct {
	CostCents     int64   `json:"cost_cents"`
	Distance      float64 `json:"distance"`
	HoursConsumed int     `json:"hours_consumed"`
	CashCents     int64   `json:"cash_cents"`
	BoroughID     int64   `json:"borough_id"`
	TurnCompleted bool    `json:"turn_completed"`
	HourAdvanced  bool    `json:"hour_advanced"`
	NewHour       int     `json:"new_hour"`
	GameOver      bool    `json:"game_over"`
}

type EndTurnInput struct {
	AccountID      int64
	GameID         int64
	IdempotencyKey string
}

type EndTurnResult struct {
	HourAdvanced bool `json:"hour_advanced"`
	NewHour      int  `json:"new_hour"`
	GameOver     bool `json:"game_over"`
}

type LoanInput struct {
	AccountID      int64
	GameID         int64
	AmountCents    int64
	IdempotencyKey string
}

type LoanResult struct {
	CashCents int64 `json:"cash_cents"`
	LoanCents int64 `json:"loan_cents"`
}

type GameView struct {
	ID          int64           `json:"id"`
	Status      string          `json:"status"`
	CurrentHour int             `json:"current_hour"`
	MaxHours    int             `json:"max_hours"`
	CreatedAt   time.Time       `json:"created_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Players     []PlayerSummary `json:"players"`
}

type PlayerSummary struct {
	PlayerID      int64  `json:"player_id"`
	Handle        string `json:"handle"`
	BoroughID     int64  `json:"borough_id"`
	TurnCompleted bool   `json:"turn_completed"`
}

type PlayerView struct {
	PlayerID         int64           `json:"player_id"`
	Handle           string          `json:"handle"`
	CashCents        int64           `json:"cash_cents"`
	LoanCents        int64           `json:"loan_cents"`
	BoroughID        int64           `json:"borough_id"`
	Capacity         int             `json:"capacity"`
	UsedSpace        int             `json:"used_space"`
	ActionsRemaining int             `json:"actions_remaining"`
	TurnCompleted    bool            `json:"turn_completed"`
	Items            []InventoryItem `json:"items"`
}

type InventoryItem struct {
	ID                 int64     `json:"id"`
	ProductID          int64     `json:"product_id"`
	Title              string    `json:"title"`
	Artist             string    `json:"artist"`
	Genre              string    `json:"genre"`
	PurchasePriceCents int64     `json:"purchase_price_cents"`
	Condition          Condition `json:"condition"`
	QualityRating      int       `json:"quality_rating"`
	SpaceRequired      int       `json:"space_required"`
}

type ListingView struct {
	ID                int64     `json:"id"`
	StoreID           int64     `json:"store_id"`
	ProductID         int64     `json:"product_id"`
	Title             string    `json:"title"`
	Artist            string    `json:"artist"`
	Genre             string    `json:"genre"`
	Condition         Condition `json:"condition"`
	Quantity          int       `json:"quantity"`
	CurrentPriceCents int64     `json:"current_price_cents"`
	QualityRating     int       `json:"quality_rating"`
}

type TransactionView struct {
	ID         int64     `json:"id"`
	PlayerID   int64     `json:"player_id"`
	StoreID    int64     `json:"store_id,omitempty"`
	ProductID  int64     `json:"product_id,omitempty"`
	Type       string    `json:"type"`
	Quantity   int       `json:"quantity"`
	PriceCents int64     `json:"price_cents"`
	Hour       int       `json:"hour"`
	CreatedAt  time.Time `json:"created_at"`
}

type Product struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	Genre          string `json:"genre"`
	BasePriceCents int64  `json:"base_price_cents"`
	SpaceRequired  int    `json:"space_required"`
}

type Store struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	BoroughID       int64   `json:"borough_id"`
	SpecialtyGenre  string  `json:"specialty_genre"`
	PriceMultiplier float64 `json:"price_multiplier"`
}

type Borough struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	PriceModifier float64 `json:"price_modifier"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}
