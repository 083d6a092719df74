package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "waxtrade/internal/cli"
	"waxtrade/internal/config"
	"waxtrade/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "wax",
		Short:        "Waxtrade CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newGameCmd(&apiBase),
		newShopCmd(&apiBase),
		newBuyCmd(&apiBase),
		newSellCmd(&apiBase),
		newTravelCmd(&apiBase),
		newEndTurnCmd(&apiBase),
		newLoanCmd(&apiBase),
		newMeCmd(&apiBase),
		newLogCmd(&apiBase),
		newCatalogCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Waxtrade account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken: session.AccessToken,
				Email:       session.Email,
				AccountID:   session.AccountID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Waxtrade",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken: session.AccessToken,
				Email:       session.Email,
				AccountID:   session.AccountID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newGameCmd(apiBase *string) *cobra.Command {
	gameCmd := &cobra.Command{
		Use:   "game",
		Short: "Game lifecycle commands",
	}

	gameCmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a new game and join as the first player",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			handle, err := promptRequired("Handle")
			if err != nil {
				return err
			}
			hours, err := promptInt64("Game length in hours", 1)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CreateGame(ctx, sess.AccessToken, handle, int(hours), uuid.NewString())
			if err != nil {
				return err
			}
			gameID := int64(asFloat(out["game_id"]))
			sess.GameID = gameID
			if err := cl.SaveSession(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Game #%d created. You are player #%d.", gameID, int64(asFloat(out["player_id"]))))
			return nil
		},
	})

	gameCmd.AddCommand(&cobra.Command{
		Use:   "join [game_id]",
		Short: "Join an open game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := int64FromArgOrPrompt(args, 0, "Game ID")
			if err != nil {
				return err
			}
			handle, err := promptRequired("Handle")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).JoinGame(ctx, sess.AccessToken, gameID, handle, uuid.NewString())
			if err != nil {
				return err
			}
			sess.GameID = gameID
			if err := cl.SaveSession(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Joined game #%d as player #%d.", gameID, int64(asFloat(out["player_id"]))))
			return nil
		},
	})

	gameCmd.AddCommand(&cobra.Command{
		Use:   "start [game_id]",
		Short: "Start a waiting game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, gameID, err := sessionAndGame(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).StartGame(ctx, sess.AccessToken, gameID, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Game #%d started. The market is open.", gameID))
			return nil
		},
	})

	gameCmd.AddCommand(&cobra.Command{
		Use:   "state [game_id]",
		Short: "Show game status and players",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, gameID, err := sessionAndGame(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).GameState(ctx, sess.AccessToken, gameID)
			if err != nil {
				return err
			}
			return renderGameState(out)
		},
	})

	return gameCmd
}

func newShopCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shop [store_id]",
		Short: "Browse a store's listings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			storeID, err := int64FromArgOrPrompt(args, 0, "Store ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).StoreListings(ctx, sess.AccessToken, gameID, storeID)
			if err != nil {
				return err
			}
			return renderListings(out, storeID)
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy",
		Short: "Buy records from a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			storeID, err := promptInt64("Store ID", 1)
			if err != nil {
				return err
			}
			productID, err := promptInt64("Product ID", 1)
			if err != nil {
				return err
			}
			qty, err := promptInt64("Quantity", 1)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{
				"store_id":   storeID,
				"product_id": productID,
				"listing_id": int64(0),
				"quantity":   qty,
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Buy(ctx, sess.AccessToken, gameID, storeID, productID, 0, int(qty), idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/games/%d/buy", gameID),
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			printSuccess(fmt.Sprintf("Bought %d for %s total. Cash: %s",
				qty, formatCents(int64(asFloat(out["total_cents"]))), formatCents(int64(asFloat(out["cash_cents"])))))
			return nil
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell",
		Short: "Sell records to a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			storeID, err := promptInt64("Store ID", 1)
			if err != nil {
				return err
			}
			productID, err := promptInt64("Product ID", 1)
			if err != nil {
				return err
			}
			qty, err := promptInt64("Quantity", 1)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{
				"store_id":          storeID,
				"product_id":        productID,
				"inventory_item_id": int64(0),
				"quantity":          qty,
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Sell(ctx, sess.AccessToken, gameID, storeID, productID, 0, int(qty), idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/games/%d/sell", gameID),
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			printSuccess(fmt.Sprintf("Sold %d for %s total. Cash: %s",
				qty, formatCents(int64(asFloat(out["total_cents"]))), formatCents(int64(asFloat(out["cash_cents"])))))
			return nil
		},
	}
}

func newTravelCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "travel",
		Short: "Travel to another borough",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			boroughID, err := promptInt64("Borough ID", 1)
			if err != nil {
				return err
			}
			transportID, err := promptInt64("Transport ID", 1)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{
				"borough_id":   boroughID,
				"transport_id": transportID,
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Travel(ctx, sess.AccessToken, gameID, boroughID, transportID, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/games/%d/travel", gameID),
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderTravelResult(out)
		},
	}
}

func newEndTurnCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "end-turn",
		Short: "Finish your turn for this hour",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).EndTurn(ctx, sess.AccessToken, gameID, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/games/%d/end-turn", gameID),
					Body:           map[string]any{},
					IdempotencyKey: idem,
				})
			}
			if asBool(out["game_over"]) {
				printWarn("Game over! Check the final standings with `wax game state`.")
				return nil
			}
			if asBool(out["hour_advanced"]) {
				printSuccess(fmt.Sprintf("Turn ended. The clock advanced: %d hours remain.", int64(asFloat(out["new_hour"]))))
			} else {
				printInfo("Turn ended. Waiting for the other players.")
			}
			return nil
		},
	}
}

func newLoanCmd(apiBase *string) *cobra.Command {
	loan := &cobra.Command{
		Use:   "loan",
		Short: "Loan shark operations",
	}

	loan.AddCommand(&cobra.Command{
		Use:   "take",
		Short: "Borrow cash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return loanCommand(cmd, apiBase, "take")
		},
	})
	loan.AddCommand(&cobra.Command{
		Use:   "repay",
		Short: "Pay back the loan shark",
		RunE: func(cmd *cobra.Command, args []string) error {
			return loanCommand(cmd, apiBase, "repay")
		},
	})
	return loan
}

func loanCommand(cmd *cobra.Command, apiBase *string, action string) error {
	sess, err := cl.LoadSession()
	if err != nil {
		return fmt.Errorf("login required: %w", err)
	}
	gameID, err := currentGame(sess)
	if err != nil {
		return err
	}
	amount, err := promptFloat("Amount (dollars)", 0)
	if err != nil {
		return err
	}
	cents := int64(amount * 100)
	idem := uuid.NewString()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	client := newClient(apiBase)
	var out map[string]any
	if action == "take" {
		out, err = client.TakeLoan(ctx, sess.AccessToken, gameID, cents, idem)
	} else {
		out, err = client.RepayLoan(ctx, sess.AccessToken, gameID, cents, idem)
	}
	if err != nil {
		return queueOnNetworkError(err, syncq.Command{
			Method:         "POST",
			Path:           fmt.Sprintf("/v1/games/%d/loans/%s", gameID, action),
			Body:           map[string]any{"amount_cents": cents},
			IdempotencyKey: idem,
		})
	}
	printSuccess(fmt.Sprintf("Cash: %s  Outstanding loan: %s",
		formatCents(int64(asFloat(out["cash_cents"]))), formatCents(int64(asFloat(out["loan_cents"])))))
	return nil
}

func newMeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your player state and crate",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).PlayerState(ctx, sess.AccessToken, gameID)
			if err != nil {
				return err
			}
			return renderPlayerState(out)
		},
	}
}

func newLogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the game's transaction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			gameID, err := currentGame(sess)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Transactions(ctx, sess.AccessToken, gameID)
			if err != nil {
				return err
			}
			return renderTransactions(out)
		},
	}
}

func newCatalogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [products|stores|boroughs|transports]",
		Short: "Browse the static catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			kind := "products"
			if len(args) > 0 {
				kind = strings.ToLower(strings.TrimSpace(args[0]))
			}
			switch kind {
			case "products", "stores", "boroughs", "transports":
			default:
				return fmt.Errorf("unknown catalog %q", kind)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Catalog(ctx, sess.AccessToken, kind)
			if err != nil {
				return err
			}
			return renderCatalog(kind, out)
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					// A duplicate key means the command landed before the
					// connection dropped; drop it from the queue.
					if strings.Contains(err.Error(), "duplicate idempotency") {
						success++
						continue
					}
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}

// queueOnNetworkError stores a failed mutation for later replay, but only
// when the failure was transport-level. Structured API rejections are final.
func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if isAPIStructuredError(err) {
		return err
	}
	if qErr := syncq.Push(cmd); qErr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn("Network error. Command queued locally; run `wax sync` when back online.")
	return nil
}

func isAPIStructuredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "api status")
}

func sessionAndGame(args []string) (cl.Session, int64, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, 0, fmt.Errorf("login required: %w", err)
	}
	if len(args) > 0 {
		id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
		if err != nil || id <= 0 {
			return cl.Session{}, 0, fmt.Errorf("invalid game id")
		}
		return sess, id, nil
	}
	id, err := currentGame(sess)
	if err != nil {
		return cl.Session{}, 0, err
	}
	return sess, id, nil
}

func currentGame(sess cl.Session) (int64, error) {
	if sess.GameID <= 0 {
		return 0, fmt.Errorf("no active game; run `wax game create` or `wax game join`")
	}
	return sess.GameID, nil
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}
