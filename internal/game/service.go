package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service is the market transaction and turn coordination engine. Every
// mutating operation runs as one serializable transaction; serialization
// failures are retried transparently so callers never see a torn operation.
type Service struct {
	db   *pgxpool.Pool
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) randIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// runSerializable executes fn inside a serializable transaction, retrying
// serialization and deadlock aborts with capped exponential backoff. fn must
// not commit; the wrapper commits when fn returns nil.
func (s *Service) runSerializable(ctx context.Context, fn func(pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure and deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// claimIdempotency reserves the caller-supplied key before any mutation.
// A replayed key aborts the transaction with ErrDuplicateIdempotency.
func claimIdempotency(ctx context.Context, tx pgx.Tx, accountID int64, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO game.idempotency_keys (account_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id, key) DO NOTHING
	`, accountID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

type gameRow struct {
	id          int64
	status      string
	currentHour int
	maxHours    int
}

type playerRow struct {
	id               int64
	gameID           int64
	accountID        int64
	handle           string
	cashCents        int64
	loanCents        int64
	capacity         int
	boroughID        int64
	actionsRemaining int
	turnCompleted    bool
}

func gameTx(ctx context.Context, tx pgx.Tx, gameID int64, lock bool) (gameRow, error) {
	q := `
		SELECT id, status, current_hour, max_hours
		FROM game.games
		WHERE id = $1
	`
	if lock {
		q += ` FOR UPDATE`
	}
	var g gameRow
	err := tx.QueryRow(ctx, q, gameID).Scan(&g.id, &g.status, &g.currentHour, &g.maxHours)
	if err == pgx.ErrNoRows {
		return g, ErrGameNotFound
	}
	return g, err
}

func playerForUpdateTx(ctx context.Context, tx pgx.Tx, gameID, accountID int64) (playerRow, error) {
	var p playerRow
	err := tx.QueryRow(ctx, `
		SELECT id, game_id, account_id, handle, cash_cents, loan_cents,
		       inventory_capacity, borough_id, actions_remaining, turn_completed
		FROM game.players
		WHERE game_id = $1 AND account_id = $2
		FOR UPDATE
	`, gameID, accountID).Scan(&p.id, &p.gameID, &p.accountID, &p.handle, &p.cashCents,
		&p.loanCents, &p.capacity, &p.boroughID, &p.actionsRemaining, &p.turnCompleted)
	if err == pgx.ErrNoRows {
		return p, ErrPlayerNotFound
	}
	return p, err
}

func usedSpaceTx(ctx context.Context, tx pgx.Tx, playerID int64) (int, error) {
	var used int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.space_required), 0)
		FROM game.inventory_items i
		JOIN game.products p ON p.id = i.product_id
		WHERE i.player_id = $1
	`, playerID).Scan(&used)
	return used, err
}

func appendTransactionTx(ctx context.Context, tx pgx.Tx, gameID, playerID int64, storeID, productID *int64, txType string, quantity int, priceCents int64, hour int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.transactions
		    (game_id, player_id, store_id, product_id, tx_type, quantity, price_cents, hour)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, gameID, playerID, storeID, productID, txType, quantity, priceCents, hour)
	return err
}

// verifyPlayerTx re-reads the player's balance after mutation. A negative
// balance here means a precondition check was bypassed; that is an engine
// bug, not a user error, and is logged as such.
func (s *Service) verifyPlayerTx(ctx context.Context, tx pgx.Tx, playerID int64, op string) error {
	var cash, loan int64
	if err := tx.QueryRow(ctx, `
		SELECT cash_cents, loan_cents FROM game.players WHERE id = $1
	`, playerID).Scan(&cash, &loan); err != nil {
		return err
	}
	if cash < 0 || loan < 0 {
		s.log.Error("internal consistency violation",
			"op", op, "player_id", playerID, "cash_cents", cash, "loan_cents", loan)
		return ErrInternalInconsistency
	}
	return nil
}

func (s *Service) CreateGame(ctx context.Context, in CreateGameInput) (CreateGameResult, error) {
	var out CreateGameResult
	if err := validateHandle(in.Handle); err != nil {
		return out, err
	}
	if in.MaxHours <= 0 {
		in.MaxHours = DefaultMaxHours
	}
	if in.MaxHours > 168 {
		return out, fmt.Errorf("max hours must be <= 168")
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "create_game"); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO game.games (status, current_hour, max_hours)
			VALUES ($1, $2, $2)
			RETURNING id
		`, StatusWaiting, in.MaxHours).Scan(&out.GameID); err != nil {
			return err
		}
		playerID, err := insertPlayerTx(ctx, tx, out.GameID, in.AccountID, in.Handle)
		if err != nil {
			return err
		}
		out.PlayerID = playerID
		return nil
	})
	if err != nil {
		return CreateGameResult{}, err
	}
	return out, nil
}

func (s *Service) JoinGame(ctx context.Context, in JoinGameInput) (JoinGameResult, error) {
	var out JoinGameResult
	if err := validateHandle(in.Handle); err != nil {
		return out, err
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "join_game"); err != nil {
			return err
		}
		g, err := gameTx(ctx, tx, in.GameID, true)
		if err != nil {
			return err
		}
		if g.status != StatusWaiting {
			return ErrInvalidState
		}
		var count int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(1) FROM game.players WHERE game_id = $1
		`, in.GameID).Scan(&count); err != nil {
			return err
		}
		if count >= MaxPlayersPerGame {
			return ErrGameFull
		}
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM game.players WHERE game_id = $1 AND account_id = $2)
		`, in.GameID, in.AccountID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyJoined
		}
		playerID, err := insertPlayerTx(ctx, tx, in.GameID, in.AccountID, in.Handle)
		if err != nil {
			return err
		}
		out.PlayerID = playerID
		return nil
	})
	if err != nil {
		return JoinGameResult{}, err
	}
	return out, nil
}

func insertPlayerTx(ctx context.Context, tx pgx.Tx, gameID, accountID int64, handle string) (int64, error) {
	var playerID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO game.players
		    (game_id, account_id, handle, cash_cents, loan_cents, inventory_capacity,
		     borough_id, actions_remaining, turn_completed)
		VALUES ($1, $2, $3, $4, 0, $5,
		        (SELECT MIN(id) FROM game.boroughs), $6, false)
		RETURNING id
	`, gameID, accountID, handle, StarterCashCents, DefaultInventoryCapacity, ActionsPerHour).Scan(&playerID)
	return playerID, err
}

// StartGame moves a waiting game to active and stocks its market. Any member
// of the game may start it.
func (s *Service) StartGame(ctx context.Context, in StartGameInput) error {
	return s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "start_game"); err != nil {
			return err
		}
		g, err := gameTx(ctx, tx, in.GameID, true)
		if err != nil {
			return err
		}
		if g.status != StatusWaiting {
			return ErrInvalidState
		}
		if _, err := playerForUpdateTx(ctx, tx, in.GameID, in.AccountID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.games
			SET status = $1, started_at = now()
			WHERE id = $2
		`, StatusActive, in.GameID); err != nil {
			return err
		}
		return s.seedMarketTx(ctx, tx, in.GameID)
	})
}

func (s *Service) TakeLoan(ctx context.Context, in LoanInput) (LoanResult, error) {
	var out LoanResult
	if in.AmountCents <= 0 {
		return out, fmt.Errorf("loan amount must be > 0")
	}
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "loan_take"); err != nil {
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
		if p.loanCents+in.AmountCents > MaxLoanCents {
			return fmt.Errorf("loan limit of %.2f exceeded", CentsToDollars(MaxLoanCents))
		}
		out.CashCents = p.cashCents + in.AmountCents
		out.LoanCents = p.loanCents + in.AmountCents
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET cash_cents = $1, loan_cents = $2, updated_at = now()
			WHERE id = $3
		`, out.CashCents, out.LoanCents, p.id); err != nil {
			return err
		}
		if err := appendTransactionTx(ctx, tx, in.GameID, p.id, nil, nil, "loan_take", 0, in.AmountCents, g.currentHour); err != nil {
			return err
		}
		return s.verifyPlayerTx(ctx, tx, p.id, "loan_take")
	})
	if err != nil {
		return LoanResult{}, err
	}
	return out, nil
}

func (s *Service) RepayLoan(ctx context.Context, in LoanInput) (LoanResult, error) {
	var out LoanResult
	if in.AmountCents <= 0 {
		return out, fmt.Errorf("repayment amount must be > 0")
	}
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.AccountID, in.IdempotencyKey, "loan_repay"); err != nil {
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
		if in.AmountCents > p.loanCents {
			return fmt.Errorf("repayment exceeds outstanding loan")
		}
		if p.cashCents < in.AmountCents {
			return ErrInsufficientFunds
		}
		out.CashCents = p.cashCents - in.AmountCents
		out.LoanCents = p.loanCents - in.AmountCents
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET cash_cents = $1, loan_cents = $2, updated_at = now()
			WHERE id = $3
		`, out.CashCents, out.LoanCents, p.id); err != nil {
			return err
		}
		if err := appendTransactionTx(ctx, tx, in.GameID, p.id, nil, nil, "loan_repay", 0, in.AmountCents, g.currentHour); err != nil {
			return err
		}
		return s.verifyPlayerTx(ctx, tx, p.id, "loan_repay")
	})
	if err != nil {
		return LoanResult{}, err
	}
	return out, nil
}

// applyLoanInterestTx accrues per-hour interest on every outstanding loan in
// the game. Called when the shared clock advances.
func applyLoanInterestTx(ctx context.Context, tx pgx.Tx, gameID int64, hour int) error {
	rows, err := tx.Query(ctx, `
		SELECT id, loan_cents
		FROM game.players
		WHERE game_id = $1 AND loan_cents > 0
		FOR UPDATE
	`, gameID)
	if err != nil {
		return err
	}
	type debtor struct {
		playerID  int64
		loanCents int64
	}
	var debtors []debtor
	for rows.Next() {
		var d debtor
		if err := rows.Scan(&d.playerID, &d.loanCents); err != nil {
			rows.Close()
			return err
		}
		debtors = append(debtors, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range debtors {
		interest := int64(math.Ceil(float64(d.loanCents) * LoanInterestPerHour))
		if interest <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.players
			SET loan_cents = loan_cents + $1, updated_at = now()
			WHERE id = $2
		`, interest, d.playerID); err != nil {
			return err
		}
		if err := appendTransactionTx(ctx, tx, gameID, d.playerID, nil, nil, "loan_interest", 0, interest, hour); err != nil {
			return err
		}
	}
	return nil
}
