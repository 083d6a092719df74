package game

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Maintenance operations run by the background worker. Each sweep is a
// single serializable transaction so it composes with live gameplay.

// ExpireStaleGames completes active games with no activity for maxIdle and
// abandons waiting lobbies that never started.
func (s *Service) ExpireStaleGames(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxIdle)
	var expired int
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		expired = 0
		rows, err := tx.Query(ctx, `
			SELECT g.id
			FROM game.games g
			WHERE g.status IN ($1, $2)
			  AND COALESCE(
			        (SELECT MAX(t.created_at) FROM game.transactions t WHERE t.game_id = g.id),
			        g.created_at
			      ) < $3
			FOR UPDATE OF g
		`, StatusWaiting, StatusActive, cutoff)
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Exec(ctx, `
				UPDATE game.games
				SET status = $1, ended_at = now()
				WHERE id = $2
			`, StatusCompleted, id); err != nil {
				return err
			}
			s.log.Info("expired stale game", "game_id", id)
			expired++
		}
		return nil
	})
	return expired, err
}

// RestockMarkets tops up stores that have sold out in active games so a
// long-running game cannot drain the market dry.
func (s *Service) RestockMarkets(ctx context.Context) (int, error) {
	var restocked int
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		restocked = 0
		rows, err := tx.Query(ctx, `
			SELECT g.id, st.id
			FROM game.games g
			CROSS JOIN game.stores st
			WHERE g.status = $1
			  AND NOT EXISTS (
			        SELECT 1 FROM game.market_listings ml
			        WHERE ml.game_id = g.id AND ml.store_id = st.id
			      )
		`, StatusActive)
		if err != nil {
			return err
		}
		type empty struct{ gameID, storeID int64 }
		var empties []empty
		for rows.Next() {
			var e empty
			if err := rows.Scan(&e.gameID, &e.storeID); err != nil {
				rows.Close()
				return err
			}
			empties = append(empties, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, e := range empties {
			if err := s.restockStoreTx(ctx, tx, e.gameID, e.storeID); err != nil {
				return err
			}
			restocked++
		}
		return nil
	})
	return restocked, err
}

// restockStoreTx seeds a handful of fresh listings for one empty store.
func (s *Service) restockStoreTx(ctx context.Context, tx pgx.Tx, gameID, storeID int64) error {
	rows, err := tx.Query(ctx, `
		SELECT p.id, p.base_price_cents, st.price_multiplier
		FROM game.products p
		CROSS JOIN game.stores st
		WHERE st.id = $1
		ORDER BY p.id
	`, storeID)
	if err != nil {
		return err
	}
	type cand struct {
		productID, baseCents int64
		multiplier           float64
	}
	var cands []cand
	for rows.Next() {
		var c cand
		if err := rows.Scan(&c.productID, &c.baseCents, &c.multiplier); err != nil {
			rows.Close()
			return err
		}
		cands = append(cands, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range cands {
		if s.nextFloat() < 0.7 {
			continue
		}
		cond := seedConditions[s.randIntn(len(seedConditions))]
		quality := 40 + s.randIntn(61)
		qty := 1 + s.randIntn(3)
		price := SeedListingPriceCents(c.baseCents, c.multiplier, cond)
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.market_listings
			    (game_id, store_id, product_id, condition, quantity, current_price_cents, quality_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (game_id, store_id, product_id, condition)
			DO UPDATE SET quantity = game.market_listings.quantity + EXCLUDED.quantity
		`, gameID, storeID, c.productID, string(cond), qty, price, quality); err != nil {
			return err
		}
	}
	return nil
}

// PruneIdempotencyKeys drops keys older than keep. Replay protection only
// matters within a retry window, not forever.
func (s *Service) PruneIdempotencyKeys(ctx context.Context, keep time.Duration) (int64, error) {
	cutoff := time.Now().Add(-keep)
	cmd, err := s.db.Exec(ctx, `
		DELETE FROM game.idempotency_keys WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
