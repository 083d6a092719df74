package game

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Travel moves the player to another borough, charging the transport fare
// and consuming the trip's hours from the turn budget. Exhausting the budget
// completes the player's turn, which may in turn advance the shared clock.
//
// Travel touches the game row, so it takes the game lock before the player
// lock. EndTurn uses the same order; trades never take the game lock.
func (s *Service) Travel(ctx context.Context, in TravelInput) (TravelResult, error) {
	var out TravelResult
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		out = TravelResult{}
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "travel"); err != nil {
			return err
		}
		g, err := gameTx(ctx, tx, in.GameID, true)
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

		var fromX, fromY, toX, toY float64
		if err := tx.QueryRow(ctx, `
			SELECT x, y FROM game.boroughs WHERE id = $1
		`, p.boroughID).Scan(&fromX, &fromY); err != nil {
			if err == pgx.ErrNoRows {
				return ErrBoroughNotFound
			}
			return err
		}
		if err := tx.QueryRow(ctx, `
			SELECT x, y FROM game.boroughs WHERE id = $1
		`, in.BoroughID).Scan(&toX, &toY); err != nil {
			if err == pgx.ErrNoRows {
				return ErrBoroughNotFound
			}
			return err
		}

		var t Transport
		if err := tx.QueryRow(ctx, `
			SELECT id, name, base_cost_cents, speed_factor, max_range, is_distance_based
			FROM game.transports
			WHERE id = $1
		`, in.TransportID).Scan(&t.ID, &t.Name, &t.BaseCostCents, &t.SpeedFactor, &t.MaxRange, &t.IsDistanceBased); err != nil {
			if err == pgx.ErrNoRows {
				return ErrTransportNotFound
			}
			return err
		}

		dist := Distance(fromX, fromY, toX, toY)
		if !WithinRange(t, dist) {
			return ErrOutOfRange
		}
		cost := TravelCostCents(t, dist)
		hours := TravelHours(dist, t.SpeedFactor)

		if p.cashCents < cost {
			return ErrInsufficientFunds
		}

		out.CashCents = p.cashCents - cost
		remaining := p.actionsRemaining - hours
		turnDone := remaining <= 0
		if remaining < 0 {
			remaining = 0
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET cash_cents = $1, borough_id = $2, actions_remaining = $3,
			    turn_completed = $4, updated_at = now()
			WHERE id = $5
		`, out.CashCents, in.BoroughID, remaining, turnDone, p.id); err != nil {
			return err
		}

		// Per-player trip counter, used by the stats views.
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.player_transports (game_id, player_id, transport_id, trips)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (game_id, player_id, transport_id)
			DO UPDATE SET trips = game.player_transports.trips + 1
		`, in.GameID, p.id, t.ID); err != nil {
			return err
		}

		if err := appendTransactionTx(ctx, tx, in.GameID, p.id, nil, nil, "travel", hours, cost, g.currentHour); err != nil {
			return err
		}

		out.CostCents = cost
		out.Distance = dist
		out.HoursConsumed = hours
		out.BoroughID = in.BoroughID
		out.TurnCompleted = turnDone
		out.NewHour = g.currentHour
		if turnDone {
			advanced, newHour, gameOver, err := completeTurnTx(ctx, tx, g)
			if err != nil {
				return err
			}
			out.HourAdvanced = advanced
			out.NewHour = newHour
			out.GameOver = gameOver
		}
		return s.verifyPlayerTx(ctx, tx, p.id, "travel")
	})
	if err != nil {
		return TravelResult{}, err
	}
	return out, nil
}

// EndTurn marks the player done for the current hour. Ending an already
// completed turn is a no-op, not an error, so retried requests converge.
func (s *Service) EndTurn(ctx context.Context, in EndTurnInput) (EndTurnResult, error) {
	var out EndTurnResult
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		out = EndTurnResult{}
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "end_turn"); err != nil {
			return err
		}
		g, err := gameTx(ctx, tx, in.GameID, true)
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
		out.NewHour = g.currentHour
		if p.turnCompleted {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET turn_completed = true, actions_remaining = 0, updated_at = now()
			WHERE id = $1
		`, p.id); err != nil {
			return err
		}
		advanced, newHour, gameOver, err := completeTurnTx(ctx, tx, g)
		if err != nil {
			return err
		}
		out.HourAdvanced = advanced
		out.NewHour = newHour
		out.GameOver = gameOver
		return nil
	})
	if err != nil {
		return EndTurnResult{}, err
	}
	return out, nil
}

// completeTurnTx checks whether every player has finished the hour and, if
// so, advances the shared clock: decrement hours remaining, accrue loan
// interest, and reset every player's turn budget. The hour 0 boundary ends
// the game. The caller must hold the game row lock, which is what makes
// concurrent end-of-turn races decrement the clock exactly once.
func completeTurnTx(ctx context.Context, tx pgx.Tx, g gameRow) (advanced bool, newHour int, gameOver bool, err error) {
	var pending int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(1) FROM game.players
		WHERE game_id = $1 AND NOT turn_completed
	`, g.id).Scan(&pending); err != nil {
		return false, g.currentHour, false, err
	}
	if pending > 0 {
		return false, g.currentHour, false, nil
	}

	newHour = g.currentHour - 1
	if newHour <= 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE game.games
			SET status = $1, current_hour = 0, ended_at = now()
			WHERE id = $2
		`, StatusCompleted, g.id); err != nil {
			return false, newHour, false, err
		}
		return true, 0, true, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE game.games SET current_hour = $1 WHERE id = $2
	`, newHour, g.id); err != nil {
		return false, newHour, false, err
	}
	if err := applyLoanInterestTx(ctx, tx, g.id, newHour); err != nil {
		return false, newHour, false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.players
		SET turn_completed = false, actions_remaining = $1, updated_at = now()
		WHERE game_id = $2
	`, ActionsPerHour, g.id); err != nil {
		return false, newHour, false, err
	}
	return true, newHour, false, nil
}
