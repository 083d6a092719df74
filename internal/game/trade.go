package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Buy purchases quantity units from a store listing. Preconditions are
// checked in order (stock, funds, space) before any mutation, and the
// whole operation (cash debit, inventory rows, listing decrement, log
// append) commits or rolls back as one unit.
func (s *Service) Buy(ctx context.Context, in BuyInput) (BuyResult, error) {
	var out BuyResult
	if in.Quantity <= 0 || in.Quantity > MaxQuantityPerTrade {
		return out, fmt.Errorf("quantity must be between 1 and %d", MaxQuantityPerTrade)
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		out = BuyResult{}
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "buy"); err != nil {
			return err
		}
		g, err := gameTx(ctx, tx, in.GameID, false)
		if err != nil {
			return err
		}
		if g.status != StatusActive {
			return ErrInvalidState
		}

		listing, err := listingForUpdateTx(ctx, tx, in)
		if err != nil {
			return err
		}
		if listing.quantity < in.Quantity {
			return ErrOutOfStock
		}

		total, err := BuyCostCents(listing.priceCents, in.Quantity)
		if err != nil {
			return err
		}

		p, err := playerForUpdateTx(ctx, tx, in.GameID, in.AccountID)
		if err != nil {
			return err
		}
		if p.turnCompleted {
			return ErrInvalidState
		}
		if p.cashCents < total {
			return ErrInsufficientFunds
		}

		var spaceRequired int
		if err := tx.QueryRow(ctx, `
			SELECT space_required FROM game.products WHERE id = $1
		`, in.ProductID).Scan(&spaceRequired); err != nil {
			if err == pgx.ErrNoRows {
				return ErrProductNotFound
			}
			return err
		}
		used, err := usedSpaceTx(ctx, tx, p.id)
		if err != nil {
			return err
		}
		if p.capacity-used < spaceRequired*in.Quantity {
			return ErrInventoryFull
		}

		// One row per physical unit so each copy keeps its own purchase
		// price and condition for resale.
		for i := 0; i < in.Quantity; i++ {
			var itemID int64
			if err := tx.QueryRow(ctx, `
				INSERT INTO game.inventory_items
				    (game_id, player_id, product_id, purchase_price_cents, condition, quality_rating)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, in.GameID, p.id, in.ProductID, listing.priceCents, string(listing.condition), listing.quality).Scan(&itemID); err != nil {
				return err
			}
			out.ItemIDs = append(out.ItemIDs, itemID)
		}

		remaining := listing.quantity - in.Quantity
		if remaining <= 0 {
			if _, err := tx.Exec(ctx, `
				DELETE FROM game.market_listings WHERE id = $1
			`, listing.id); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, `
				UPDATE game.market_listings
				SET quantity = $1, updated_at = now()
				WHERE id = $2
			`, remaining, listing.id); err != nil {
				return err
			}
		}

		out.CashCents = p.cashCents - total
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET cash_cents = $1, updated_at = now()
			WHERE id = $2
		`, out.CashCents, p.id); err != nil {
			return err
		}

		if err := appendTransactionTx(ctx, tx, in.GameID, p.id, &in.StoreID, &in.ProductID, "buy", in.Quantity, listing.priceCents, g.currentHour); err != nil {
			return err
		}

		out.UnitPriceCents = listing.priceCents
		out.TotalCents = total
		return s.verifyPlayerTx(ctx, tx, p.id, "buy")
	})
	if err != nil {
		return BuyResult{}, err
	}
	return out, nil
}

type listingRow struct {
	id         int64
	condition  Condition
	quantity   int
	priceCents int64
	quality    int
}

// listingForUpdateTx resolves and row-locks the target listing so concurrent
// buys against the same stock serialize. Without an explicit listing id the
// cheapest listing for (store, product) wins.
func listingForUpdateTx(ctx context.Context, tx pgx.Tx, in BuyInput) (listingRow, error) {
	var l listingRow
	var cond string
	var err error
	if in.ListingID != 0 {
		err = tx.QueryRow(ctx, `
			SELECT id, condition, quantity, current_price_cents, quality_rating
			FROM game.market_listings
			WHERE id = $1 AND game_id = $2 AND store_id = $3 AND product_id = $4
			FOR UPDATE
		`, in.ListingID, in.GameID, in.StoreID, in.ProductID).Scan(&l.id, &cond, &l.quantity, &l.priceCents, &l.quality)
	} else {
		err = tx.QueryRow(ctx, `
			SELECT id, condition, quantity, current_price_cents, quality_rating
			FROM game.market_listings
			WHERE game_id = $1 AND store_id = $2 AND product_id = $3
			ORDER BY current_price_cents, id
			LIMIT 1
			FOR UPDATE
		`, in.GameID, in.StoreID, in.ProductID).Scan(&l.id, &cond, &l.quantity, &l.priceCents, &l.quality)
	}
	if err == pgx.ErrNoRows {
		return l, ErrOutOfStock
	}
	if err != nil {
		return l, err
	}
	l.condition = Condition(cond)
	return l, nil
}

// Sell sells inventory back to a store: the items are removed, cash is
// credited at the engine's sell price, and the stock reappears as a listing
// at the restock markup, all in one transaction with the log append.
func (s *Service) Sell(ctx context.Context, in SellInput) (SellResult, error) {
	var out SellResult
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	if qty > MaxQuantityPerTrade {
		return out, fmt.Errorf("quantity must be between 1 and %d", MaxQuantityPerTrade)
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		out = SellResult{}
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "sell"); err != nil {
			return err
		}
		g, err := gameTx(ctx, tx, in.GameID, false)
		if err != nil {
			return err
		}
		if g.status != StatusActive {
			return ErrInvalidState
		}
		p, err := playerForUpdateTx(ctx, tx, in.GameID, in.AccountID)
		if err != nil {
			return err
		}
		if p.turnCompleted {
			return ErrInvalidState
		}

		store, err := storeQuoteTx(ctx, tx, in.StoreID)
		if err != nil {
			return err
		}

		item, err := resolveItemTx(ctx, tx, p.id, in)
		if err != nil {
			return err
		}
		if in.InventoryItemID != 0 && qty > 1 {
			// An explicit id names exactly one physical unit.
			return ErrQuantityExceedsHolding
		}

		itemIDs := []int64{item.id}
		if qty > 1 {
			rows, err := tx.Query(ctx, `
				SELECT id
				FROM game.inventory_items
				WHERE player_id = $1 AND game_id = $2 AND product_id = $3
				  AND condition = $4 AND id <> $5
				ORDER BY id
				LIMIT $6
				FOR UPDATE
			`, p.id, in.GameID, item.productID, string(item.condition), item.id, qty-1)
			if err != nil {
				return err
			}
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return err
				}
				itemIDs = append(itemIDs, id)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			if len(itemIDs) < qty {
				return ErrQuantityExceedsHolding
			}
		}

		marketPrice, err := marketPriceTx(ctx, tx, in.GameID, in.StoreID, item.productID, item.condition)
		if err != nil {
			return err
		}
		unit := SellPriceCents(SellQuote{
			PurchasePriceCents: item.purchasePriceCents,
			MarketPriceCents:   marketPrice,
			BasePriceCents:     item.basePriceCents,
			Condition:          item.condition,
			ProductGenre:       item.genre,
			SpecialtyGenre:     store.specialtyGenre,
			CurrentHour:        g.currentHour,
			BoroughModifier:    store.boroughModifier,
		})
		total := unit * int64(qty)

		if _, err := tx.Exec(ctx, `
			DELETE FROM game.inventory_items WHERE id = ANY($1)
		`, itemIDs); err != nil {
			return err
		}

		out.CashCents = p.cashCents + total
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET cash_cents = $1, updated_at = now()
			WHERE id = $2
		`, out.CashCents, p.id); err != nil {
			return err
		}

		// Sold stock reappears at the restock markup; merging never lowers
		// an existing listing's price.
		restock := RestockPriceCents(unit)
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.market_listings
			    (game_id, store_id, product_id, condition, quantity, current_price_cents, quality_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (game_id, store_id, product_id, condition)
			DO UPDATE SET quantity = game.market_listings.quantity + EXCLUDED.quantity,
			              current_price_cents = GREATEST(game.market_listings.current_price_cents, EXCLUDED.current_price_cents),
			              updated_at = now()
		`, in.GameID, in.StoreID, item.productID, string(item.condition), qty, restock, item.quality); err != nil {
			return err
		}

		if err := appendTransactionTx(ctx, tx, in.GameID, p.id, &in.StoreID, &item.productID, "sell", qty, unit, g.currentHour); err != nil {
			return err
		}

		out.UnitPriceCents = unit
		out.TotalCents = total
		out.SoldItemIDs = itemIDs
		return s.verifyPlayerTx(ctx, tx, p.id, "sell")
	})
	if err != nil {
		return SellResult{}, err
	}
	return out, nil
}

type itemRow struct {
	id                 int64
	productID          int64
	purchasePriceCents int64
	condition          Condition
	quality            int
	genre              string
	basePriceCents     int64
}

// resolveItemTx locks the item being sold: by explicit id when given,
// otherwise the oldest item of the requested product. Selling by id is the
// only unambiguous mode when a player holds mixed conditions.
func resolveItemTx(ctx context.Context, tx pgx.Tx, playerID int64, in SellInput) (itemRow, error) {
	var it itemRow
	var cond string
	var err error
	if in.InventoryItemID != 0 {
		err = tx.QueryRow(ctx, `
			SELECT i.id, i.product_id, i.purchase_price_cents, i.condition, i.quality_rating,
			       p.genre, p.base_price_cents
			FROM game.inventory_items i
			JOIN game.products p ON p.id = i.product_id
			WHERE i.id = $1 AND i.player_id = $2 AND i.game_id = $3
			FOR UPDATE OF i
		`, in.InventoryItemID, playerID, in.GameID).Scan(&it.id, &it.productID, &it.purchasePriceCents, &cond, &it.quality, &it.genre, &it.basePriceCents)
	} else {
		err = tx.QueryRow(ctx, `
			SELECT i.id, i.product_id, i.purchase_price_cents, i.condition, i.quality_rating,
			       p.genre, p.base_price_cents
			FROM game.inventory_items i
			JOIN game.products p ON p.id = i.product_id
			WHERE i.player_id = $1 AND i.game_id = $2 AND i.product_id = $3
			ORDER BY i.id
			LIMIT 1
			FOR UPDATE OF i
		`, playerID, in.GameID, in.ProductID).Scan(&it.id, &it.productID, &it.purchasePriceCents, &cond, &it.quality, &it.genre, &it.basePriceCents)
	}
	if err == pgx.ErrNoRows {
		return it, ErrItemNotFound
	}
	if err != nil {
		return it, err
	}
	if in.InventoryItemID != 0 && in.ProductID != 0 && it.productID != in.ProductID {
		return it, ErrItemNotFound
	}
	it.condition = Condition(cond)
	return it, nil
}

type storeQuote struct {
	specialtyGenre  string
	boroughModifier float64
}

func storeQuoteTx(ctx context.Context, tx pgx.Tx, storeID int64) (storeQuote, error) {
	var sq storeQuote
	err := tx.QueryRow(ctx, `
		SELECT st.specialty_genre, b.price_modifier
		FROM game.stores st
		JOIN game.boroughs b ON b.id = st.borough_id
		WHERE st.id = $1
	`, storeID).Scan(&sq.specialtyGenre, &sq.boroughModifier)
	if err == pgx.ErrNoRows {
		return sq, ErrStoreNotFound
	}
	return sq, err
}

func marketPriceTx(ctx context.Context, tx pgx.Tx, gameID, storeID, productID int64, cond Condition) (int64, error) {
	var price int64
	err := tx.QueryRow(ctx, `
		SELECT current_price_cents
		FROM game.market_listings
		WHERE game_id = $1 AND store_id = $2 AND product_id = $3 AND condition = $4
	`, gameID, storeID, productID, string(cond)).Scan(&price)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return price, err
}

// GetSellPrice quotes what the player would receive for one inventory item
// at a store. Read-only; served from the latest committed state.
func (s *Service) GetSellPrice(ctx context.Context, accountID, gameID, storeID, itemID int64) (int64, error) {
	prices, err := s.GetSellPrices(ctx, accountID, gameID, storeID, []int64{itemID})
	if err != nil {
		return 0, err
	}
	price, ok := prices[itemID]
	if !ok {
		return 0, ErrItemNotFound
	}
	return price, nil
}

// GetSellPrices is the batched quote form used by inventory screens.
func (s *Service) GetSellPrices(ctx context.Context, accountID, gameID, storeID int64, itemIDs []int64) (map[int64]int64, error) {
	if len(itemIDs) == 0 {
		return map[int64]int64{}, nil
	}

	var currentHour int
	err := s.db.QueryRow(ctx, `
		SELECT current_hour FROM game.games WHERE id = $1
	`, gameID).Scan(&currentHour)
	if err == pgx.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	var specialtyGenre string
	var boroughModifier float64
	err = s.db.QueryRow(ctx, `
		SELECT st.specialty_genre, b.price_modifier
		FROM game.stores st
		JOIN game.boroughs b ON b.id = st.borough_id
		WHERE st.id = $1
	`, storeID).Scan(&specialtyGenre, &boroughModifier)
	if err == pgx.ErrNoRows {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT i.id, i.purchase_price_cents, i.condition, p.genre, p.base_price_cents,
		       COALESCE(ml.current_price_cents, 0)
		FROM game.inventory_items i
		JOIN game.players pl ON pl.id = i.player_id
		JOIN game.products p ON p.id = i.product_id
		LEFT JOIN game.market_listings ml
		       ON ml.game_id = i.game_id AND ml.store_id = $1
		      AND ml.product_id = i.product_id AND ml.condition = i.condition
		WHERE i.id = ANY($2) AND i.game_id = $3 AND pl.account_id = $4
	`, storeID, itemIDs, gameID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64, len(itemIDs))
	for rows.Next() {
		var id, purchase, base, market int64
		var cond, genre string
		if err := rows.Scan(&id, &purchase, &cond, &genre, &base, &market); err != nil {
			return nil, err
		}
		out[id] = SellPriceCents(SellQuote{
			PurchasePriceCents: purchase,
			MarketPriceCents:   market,
			BasePriceCents:     base,
			Condition:          Condition(cond),
			ProductGenre:       genre,
			SpecialtyGenre:     specialtyGenre,
			CurrentHour:        currentHour,
			BoroughModifier:    boroughModifier,
		})
	}
	return out, rows.Err()
}
