package game

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Read-side queries. These run outside the serializable path and always see
// the latest committed state.

func (s *Service) GameState(ctx context.Context, gameID int64) (GameView, error) {
	var v GameView
	err := s.db.QueryRow(ctx, `
		SELECT id, status, current_hour, max_hours, created_at, ended_at
		FROM game.games
		WHERE id = $1
	`, gameID).Scan(&v.ID, &v.Status, &v.CurrentHour, &v.MaxHours, &v.CreatedAt, &v.EndedAt)
	if err == pgx.ErrNoRows {
		return v, ErrGameNotFound
	}
	if err != nil {
		return v, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, handle, borough_id, turn_completed
		FROM game.players
		WHERE game_id = $1
		ORDER BY id
	`, gameID)
	if err != nil {
		return v, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PlayerSummary
		if err := rows.Scan(&p.PlayerID, &p.Handle, &p.BoroughID, &p.TurnCompleted); err != nil {
			return v, err
		}
		v.Players = append(v.Players, p)
	}
	return v, rows.Err()
}

func (s *Service) PlayerState(ctx context.Context, gameID, accountID int64) (PlayerView, error) {
	var v PlayerView
	err := s.db.QueryRow(ctx, `
		SELECT id, handle, cash_cents, loan_cents, borough_id,
		       inventory_capacity, actions_remaining, turn_completed
		FROM game.players
		WHERE game_id = $1 AND account_id = $2
	`, gameID, accountID).Scan(&v.PlayerID, &v.Handle, &v.CashCents, &v.LoanCents,
		&v.BoroughID, &v.Capacity, &v.ActionsRemaining, &v.TurnCompleted)
	if err == pgx.ErrNoRows {
		return v, ErrPlayerNotFound
	}
	if err != nil {
		return v, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT i.id, i.product_id, p.title, p.artist, p.genre,
		       i.purchase_price_cents, i.condition, i.quality_rating, p.space_required
		FROM game.inventory_items i
		JOIN game.products p ON p.id = i.product_id
		WHERE i.player_id = $1
		ORDER BY i.id
	`, v.PlayerID)
	if err != nil {
		return v, err
	}
	defer rows.Close()
	for rows.Next() {
		var it InventoryItem
		var cond string
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Title, &it.Artist, &it.Genre,
			&it.PurchasePriceCents, &cond, &it.QualityRating, &it.SpaceRequired); err != nil {
			return v, err
		}
		it.Condition = Condition(cond)
		v.Items = append(v.Items, it)
		v.UsedSpace += it.SpaceRequired
	}
	return v, rows.Err()
}

// StoreListings returns the store's current stock in a game, cheapest first.
func (s *Service) StoreListings(ctx context.Context, gameID, storeID int64) ([]ListingView, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM game.stores WHERE id = $1)
	`, storeID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStoreNotFound
	}

	rows, err := s.db.Query(ctx, `
		SELECT ml.id, ml.store_id, ml.product_id, p.title, p.artist, p.genre,
		       ml.condition, ml.quantity, ml.current_price_cents, ml.quality_rating
		FROM game.market_listings ml
		JOIN game.products p ON p.id = ml.product_id
		WHERE ml.game_id = $1 AND ml.store_id = $2
		ORDER BY ml.current_price_cents, ml.id
	`, gameID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ListingView{}
	for rows.Next() {
		var l ListingView
		var cond string
		if err := rows.Scan(&l.ID, &l.StoreID, &l.ProductID, &l.Title, &l.Artist, &l.Genre,
			&cond, &l.Quantity, &l.CurrentPriceCents, &l.QualityRating); err != nil {
			return nil, err
		}
		l.Condition = Condition(cond)
		out = append(out, l)
	}
	return out, rows.Err()
}

// TransactionLog returns the game's append-only history, newest first.
func (s *Service) TransactionLog(ctx context.Context, gameID int64, limit int) ([]TransactionView, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, COALESCE(store_id, 0), COALESCE(product_id, 0),
		       tx_type, quantity, price_cents, hour, created_at
		FROM game.transactions
		WHERE game_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TransactionView{}
	for rows.Next() {
		var t TransactionView
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.StoreID, &t.ProductID,
			&t.Type, &t.Quantity, &t.PriceCents, &t.Hour, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
