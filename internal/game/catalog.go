package game

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// The catalog (boroughs, products, stores, transports) is immutable game
// data. The engine only reads it; SeedCatalog installs the defaults on an
// empty database.

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, artist, genre, base_price_cents, space_required
		FROM game.products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Artist, &p.Genre, &p.BasePriceCents, &p.SpaceRequired); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Service) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, borough_id, specialty_genre, price_multiplier
		FROM game.stores
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Store
	for rows.Next() {
		var st Store
		if err := rows.Scan(&st.ID, &st.Name, &st.BoroughID, &st.SpecialtyGenre, &st.PriceMultiplier); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Service) ListBoroughs(ctx context.Context) ([]Borough, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price_modifier, x, y
		FROM game.boroughs
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Borough
	for rows.Next() {
		var b Borough
		if err := rows.Scan(&b.ID, &b.Name, &b.PriceModifier, &b.X, &b.Y); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Service) ListTransports(ctx context.Context) ([]Transport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, base_cost_cents, speed_factor, max_range, is_distance_based
		FROM game.transports
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transport
	for rows.Next() {
		var t Transport
		if err := rows.Scan(&t.ID, &t.Name, &t.BaseCostCents, &t.SpeedFactor, &t.MaxRange, &t.IsDistanceBased); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SeedCatalog installs the default boroughs, products, stores and transports
// when the catalog tables are empty. Safe to call on every startup.
func (s *Service) SeedCatalog(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.products`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	boroughs := []struct {
		Name     string
		Modifier float64
		X, Y     float64
	}{
		{"Downtown", 1.25, 0, 0},
		{"Northside", 1.0, 2, 6},
		{"Harborview", 0.9, 7, 1},
		{"Old Quarter", 1.1, 4, 3},
		{"Westgate", 0.85, -5, 2},
		{"Brickyard", 0.95, -2, -6},
	}
	for _, b := range boroughs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.boroughs (name, price_modifier, x, y)
			VALUES ($1, $2, $3, $4)
		`, b.Name, b.Modifier, b.X, b.Y); err != nil {
			return err
		}
	}

	products := []struct {
		Title  string
		Artist string
		Genre  string
		Price  int64
		Space  int
	}{
		{"Midnight Pressing", "The Harbor Lights", "jazz", 45 * CentsPerDollar, 1},
		{"Blue Hour", "Ella Monroe Trio", "jazz", 60 * CentsPerDollar, 1},
		{"Concrete Garden", "MC Brickyard", "hiphop", 35 * CentsPerDollar, 1},
		{"Rooftop Tapes Vol. 2", "DJ Northside", "hiphop", 28 * CentsPerDollar, 1},
		{"Velvet Current", "Sister Solane", "soul", 52 * CentsPerDollar, 1},
		{"Slow Burn Avenue", "The Amber Keys", "soul", 40 * CentsPerDollar, 1},
		{"Static Bloom", "Wire Garden", "rock", 30 * CentsPerDollar, 1},
		{"Gutter Anthems", "The Pawn Shop Kings", "punk", 22 * CentsPerDollar, 1},
		{"No Exit Wounds", "Fire Escape", "punk", 18 * CentsPerDollar, 1},
		{"Circuit Prayer", "Analog Saint", "electronic", 48 * CentsPerDollar, 1},
		{"Tunnel Vision EP", "Subway Oracle", "electronic", 26 * CentsPerDollar, 1},
		{"Paper Moon Sessions", "Grand Marquee Orchestra", "jazz", 85 * CentsPerDollar, 2},
		{"Boroughs & Basements", "Lower Deck Collective", "hiphop", 55 * CentsPerDollar, 2},
		{"Harbor Hymnal", "Dockside Revival", "soul", 70 * CentsPerDollar, 2},
		{"Last Pressing Plant", "The Vinyl Martyrs", "rock", 65 * CentsPerDollar, 2},
		{"Ghost Frequencies", "Nocturne Relay", "electronic", 90 * CentsPerDollar, 2},
		{"Riot Etiquette", "Polite Vandals", "punk", 33 * CentsPerDollar, 1},
		{"Westgate Serenade", "Marlowe & June", "rock", 42 * CentsPerDollar, 1},
	}
	for _, p := range products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.products (title, artist, genre, base_price_cents, space_required)
			VALUES ($1, $2, $3, $4, $5)
		`, p.Title, p.Artist, p.Genre, p.Price, p.Space); err != nil {
			return err
		}
	}

	stores := []struct {
		Name       string
		Borough    string
		Specialty  string
		Multiplier float64
	}{
		{"Groove Merchant", "Downtown", "jazz", 1.3},
		{"Crate Expectations", "Downtown", "hiphop", 1.2},
		{"Northside Wax", "Northside", "hiphop", 1.0},
		{"The Soul Cellar", "Old Quarter", "soul", 1.1},
		{"Dockside Discs", "Harborview", "rock", 0.9},
		{"Pressing Matters", "Harborview", "electronic", 1.0},
		{"Westgate Spins", "Westgate", "soul", 0.85},
		{"Bargain Bin Records", "Brickyard", "punk", 0.8},
	}
	for _, st := range stores {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.stores (name, borough_id, specialty_genre, price_multiplier)
			VALUES ($1, (SELECT id FROM game.boroughs WHERE name = $2), $3, $4)
		`, st.Name, st.Borough, st.Specialty, st.Multiplier); err != nil {
			return err
		}
	}

	transports := []struct {
		Name          string
		BaseCost      int64
		Speed         float64
		MaxRange      float64
		DistanceBased bool
	}{
		{"Walk", 0, 2, 5, false},
		{"Bike", 0, 4, 12, false},
		{"Bus", 250, 5, 0, false},
		{"Subway", 275, 10, 0, false},
		{"Cab", 350, 15, 0, true},
	}
	for _, t := range transports {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.transports (name, base_cost_cents, speed_factor, max_range, is_distance_based)
			VALUES ($1, $2, $3, $4, $5)
		`, t.Name, t.BaseCost, t.Speed, t.MaxRange, t.DistanceBased); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

var seedConditions = []Condition{
	ConditionMint,
	ConditionGood, ConditionGood, ConditionGood,
	ConditionFair, ConditionFair, ConditionFair,
	ConditionPoor,
}

// seedMarketTx stocks every store with fresh listings for a newly started
// game. Each store carries a randomized slice of the catalog.
func (s *Service) seedMarketTx(ctx context.Context, tx pgx.Tx, gameID int64) error {
	rows, err := tx.Query(ctx, `
		SELECT st.id, p.id, p.base_price_cents, st.price_multiplier
		FROM game.stores st
		CROSS JOIN game.products p
		ORDER BY st.id, p.id
	`)
	if err != nil {
		return err
	}
	type pair struct {
		storeID, productID, baseCents int64
		multiplier                    float64
	}
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.storeID, &p.productID, &p.baseCents, &p.multiplier); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range pairs {
		// Roughly half the catalog appears at each store.
		if s.nextFloat() < 0.5 {
			continue
		}
		cond := seedConditions[s.randIntn(len(seedConditions))]
		quality := 40 + s.randIntn(61)
		qty := 1 + s.randIntn(5)
		price := SeedListingPriceCents(p.baseCents, p.multiplier, cond)
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.market_listings
			    (game_id, store_id, product_id, condition, quantity, current_price_cents, quality_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (game_id, store_id, product_id, condition)
			DO UPDATE SET quantity = game.market_listings.quantity + EXCLUDED.quantity
		`, gameID, p.storeID, p.productID, string(cond), qty, price, quality); err != nil {
			return err
		}
	}
	return nil
}
