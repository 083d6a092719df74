package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"waxtrade/internal/api"
	"waxtrade/internal/auth"
	"waxtrade/internal/config"
	"waxtrade/internal/db"
	"waxtrade/internal/game"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/suite"
)

// Requires a migrated Postgres reachable via TEST_DATABASE_URL; the suite is
// skipped when the variable is unset.

type IntegrationTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *http.Client
	pool   *pgxpool.Pool
	game   *game.Service
}

func TestIntegrationSuite(t *testing.T) {
	_ = godotenv.Load()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, os.Getenv("TEST_DATABASE_URL"), 8)
	s.Require().NoError(err, "connect test database")
	s.pool = pool

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	gameSvc := game.NewService(pool, logger)
	s.Require().NoError(gameSvc.SeedCatalog(ctx), "seed catalog")
	s.game = gameSvc

	cfg := config.APIConfig{JWTSecret: "integration-test-secret"}
	authSvc := auth.NewService(pool, logger, cfg.JWTSecret)

	s.server = httptest.NewServer(api.New(cfg, logger, authSvc, gameSvc).Handler())
	s.client = s.server.Client()
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// signup registers a fresh throwaway account and returns its bearer token.
func (s *IntegrationTestSuite) signup() string {
	token, _ := s.signupAccount()
	return token
}

func (s *IntegrationTestSuite) signupAccount() (string, int64) {
	email := fmt.Sprintf("it-%s@waxtrade.test", uuid.NewString())
	out := s.post("", "", "/v1/auth/signup", map[string]any{
		"email":    email,
		"password": "hunter2hunter2",
	}, http.StatusCreated)
	token, _ := out["access_token"].(string)
	s.Require().NotEmpty(token, "signup should return a token")
	accountID, _ := out["account_id"].(float64)
	s.Require().NotZero(accountID, "signup should return the account id")
	return token, int64(accountID)
}

func (s *IntegrationTestSuite) post(token, idem, path string, body map[string]any, wantStatus int) map[string]any {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	s.Require().Equal(wantStatus, resp.StatusCode, "POST %s: %v", path, out)
	return out
}

func (s *IntegrationTestSuite) get(token, path string) map[string]any {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "GET %s", path)
	var out map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// newActiveGame creates a two-player game and starts it, returning both
// tokens and the game id.
func (s *IntegrationTestSuite) newActiveGame() (string, string, int64) {
	tokenA := s.signup()
	tokenB := s.signup()

	created := s.post(tokenA, uuid.NewString(), "/v1/games", map[string]any{
		"handle": "digger_a", "max_hours": 24,
	}, http.StatusCreated)
	gameID := int64(created["game_id"].(float64))

	s.post(tokenB, uuid.NewString(), fmt.Sprintf("/v1/games/%d/join", gameID), map[string]any{
		"handle": "digger_b",
	}, http.StatusOK)
	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/start", gameID), map[string]any{}, http.StatusOK)
	return tokenA, tokenB, gameID
}

func (s *IntegrationTestSuite) firstListing(token string, gameID int64) (storeID, productID int64, price float64) {
	stores := s.get(token, "/v1/catalog/stores")
	for _, raw := range stores["stores"].([]any) {
		st := raw.(map[string]any)
		sid := int64(st["id"].(float64))
		listings := s.get(token, fmt.Sprintf("/v1/games/%d/stores/%d/listings", gameID, sid))
		items := listings["listings"].([]any)
		if len(items) == 0 {
			continue
		}
		l := items[0].(map[string]any)
		return sid, int64(l["product_id"].(float64)), l["current_price_cents"].(float64)
	}
	s.FailNow("no seeded listings found")
	return 0, 0, 0
}

// listingStock sums the listed quantity of a product across conditions at
// one store.
func (s *IntegrationTestSuite) listingStock(token string, gameID, storeID, productID int64) float64 {
	listings := s.get(token, fmt.Sprintf("/v1/games/%d/stores/%d/listings", gameID, storeID))
	var total float64
	for _, raw := range listings["listings"].([]any) {
		l := raw.(map[string]any)
		if int64(l["product_id"].(float64)) == productID {
			total += l["quantity"].(float64)
		}
	}
	return total
}

func (s *IntegrationTestSuite) TestBuyDebitsCashAndFillsCrate() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, price := s.firstListing(tokenA, gameID)

	before := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	cashBefore := before["cash_cents"].(float64)

	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusOK)
	s.Require().Equal(price, out["unit_price_cents"].(float64))
	s.Require().Equal(cashBefore-price, out["cash_cents"].(float64))

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Equal(cashBefore-price, after["cash_cents"].(float64))
	s.Require().Len(after["items"].([]any), 1)
}

func (s *IntegrationTestSuite) TestSellCreditsQuotedPrice() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, _ := s.firstListing(tokenA, gameID)

	buy := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusOK)
	itemID := int64(buy["item_ids"].([]any)[0].(float64))
	cashAfterBuy := buy["cash_cents"].(float64)

	quotes := s.get(tokenA, fmt.Sprintf("/v1/games/%d/stores/%d/quotes?items=%d", gameID, storeID, itemID))
	quoted, ok := quotes["quotes"].(map[string]any)[fmt.Sprint(itemID)].(float64)
	s.Require().True(ok, "quote for item %d missing: %v", itemID, quotes)

	sell := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/sell", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusOK)
	s.Require().Equal(quoted, sell["unit_price_cents"].(float64), "sale must settle at the quoted price")
	s.Require().Equal(cashAfterBuy+quoted, sell["cash_cents"].(float64))

	end := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Empty(end["items"], "crate should be empty after selling")
}

func (s *IntegrationTestSuite) TestSingleItemQuoteMatchesBatch() {
	ctx := context.Background()
	tokenA, accountA := s.signupAccount()
	tokenB, _ := s.signupAccount()

	created := s.post(tokenA, uuid.NewString(), "/v1/games", map[string]any{
		"handle": "quote_digger", "max_hours": 24,
	}, http.StatusCreated)
	gameID := int64(created["game_id"].(float64))
	s.post(tokenB, uuid.NewString(), fmt.Sprintf("/v1/games/%d/join", gameID), map[string]any{
		"handle": "quote_buddy",
	}, http.StatusOK)
	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/start", gameID), map[string]any{}, http.StatusOK)

	storeID, productID, _ := s.firstListing(tokenA, gameID)
	buy := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusOK)
	itemID := int64(buy["item_ids"].([]any)[0].(float64))

	single, err := s.game.GetSellPrice(ctx, accountA, gameID, storeID, itemID)
	s.Require().NoError(err)
	s.Require().Positive(single)

	batch, err := s.game.GetSellPrices(ctx, accountA, gameID, storeID, []int64{itemID})
	s.Require().NoError(err)
	s.Require().Equal(batch[itemID], single)

	quotes := s.get(tokenA, fmt.Sprintf("/v1/games/%d/stores/%d/quotes?items=%d", gameID, storeID, itemID))
	quoted := quotes["quotes"].(map[string]any)[fmt.Sprint(itemID)].(float64)
	s.Require().Equal(float64(single), quoted)

	_, err = s.game.GetSellPrice(ctx, accountA, gameID, storeID, itemID+1_000_000)
	s.Require().ErrorIs(err, game.ErrItemNotFound)
}

func (s *IntegrationTestSuite) TestSellWithoutHoldingFails() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, _ := s.firstListing(tokenA, gameID)

	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/sell", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusNotFound)
}

func (s *IntegrationTestSuite) TestDuplicateIdempotencyKeyRejected() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, _ := s.firstListing(tokenA, gameID)

	idem := uuid.NewString()
	body := map[string]any{"store_id": storeID, "product_id": productID, "quantity": 1}
	s.post(tokenA, idem, fmt.Sprintf("/v1/games/%d/buy", gameID), body, http.StatusOK)
	s.post(tokenA, idem, fmt.Sprintf("/v1/games/%d/buy", gameID), body, http.StatusConflict)
}

func (s *IntegrationTestSuite) TestFailedBuyLeavesStateUntouched() {
	tokenA, _, gameID := s.newActiveGame()

	// Ask for more than any seeded listing ever stocks so the precondition
	// check trips before any mutation.
	storeID, productID, _ := s.firstListing(tokenA, gameID)
	before := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))

	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 100,
	}, http.StatusBadRequest)

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Equal(before["cash_cents"], after["cash_cents"])
	s.Require().Equal(before["items"], after["items"])
}

func (s *IntegrationTestSuite) TestBuyWithInsufficientFundsLeavesStateUntouched() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, _ := s.firstListing(tokenA, gameID)

	me := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	playerID := int64(me["player_id"].(float64))

	// Leave the player a single cent so the funds check trips after the
	// stock check passes.
	_, err := s.pool.Exec(context.Background(),
		`UPDATE game.players SET cash_cents = 1 WHERE id = $1`, playerID)
	s.Require().NoError(err)

	stockBefore := s.listingStock(tokenA, gameID, storeID, productID)

	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusBadRequest)
	s.Require().Contains(out["error"].(string), "insufficient funds")

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Equal(float64(1), after["cash_cents"].(float64))
	s.Require().Empty(after["items"])
	s.Require().Equal(stockBefore, s.listingStock(tokenA, gameID, storeID, productID))
}

func (s *IntegrationTestSuite) TestBuyWithFullCrateLeavesStateUntouched() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, _ := s.firstListing(tokenA, gameID)

	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusOK)

	me := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	playerID := int64(me["player_id"].(float64))
	cashAfterBuy := me["cash_cents"].(float64)

	// Shrink the crate so the record already held fills it.
	_, err := s.pool.Exec(context.Background(),
		`UPDATE game.players SET inventory_capacity = 1 WHERE id = $1`, playerID)
	s.Require().NoError(err)

	// Any listing still in stock will do; the space check rejects it.
	nextStore, nextProduct, _ := s.firstListing(tokenA, gameID)
	stockBefore := s.listingStock(tokenA, gameID, nextStore, nextProduct)

	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": nextStore, "product_id": nextProduct, "quantity": 1,
	}, http.StatusBadRequest)
	s.Require().Contains(out["error"].(string), "inventory space")

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Equal(cashAfterBuy, after["cash_cents"].(float64))
	s.Require().Len(after["items"].([]any), 1)
	s.Require().Equal(stockBefore, s.listingStock(tokenA, gameID, nextStore, nextProduct))
}

func (s *IntegrationTestSuite) TestSellMoreThanHeldLeavesStateUntouched() {
	tokenA, _, gameID := s.newActiveGame()
	storeID, productID, _ := s.firstListing(tokenA, gameID)

	buy := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusOK)
	itemID := int64(buy["item_ids"].([]any)[0].(float64))
	cashAfterBuy := buy["cash_cents"].(float64)

	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/sell", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 2,
	}, http.StatusBadRequest)
	s.Require().Contains(out["error"].(string), "quantity exceeds holding")

	// An explicit item id names one physical unit; asking for two is
	// rejected the same way.
	out = s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/sell", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "inventory_item_id": itemID, "quantity": 2,
	}, http.StatusBadRequest)
	s.Require().Contains(out["error"].(string), "quantity exceeds holding")

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Equal(cashAfterBuy, after["cash_cents"].(float64))
	s.Require().Len(after["items"].([]any), 1)
}

func (s *IntegrationTestSuite) TestEndTurnAdvancesHourOnce() {
	tokenA, tokenB, gameID := s.newActiveGame()

	state := s.get(tokenA, fmt.Sprintf("/v1/games/%d", gameID))
	hourBefore := state["current_hour"].(float64)

	outA := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/end-turn", gameID), map[string]any{}, http.StatusOK)
	s.Require().False(outA["hour_advanced"].(bool), "first end-turn should wait for the second player")

	outB := s.post(tokenB, uuid.NewString(), fmt.Sprintf("/v1/games/%d/end-turn", gameID), map[string]any{}, http.StatusOK)
	s.Require().True(outB["hour_advanced"].(bool))
	s.Require().Equal(hourBefore-1, outB["new_hour"].(float64))

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d", gameID))
	s.Require().Equal(hourBefore-1, after["current_hour"].(float64))
}

func (s *IntegrationTestSuite) TestConcurrentEndTurnDecrementsOnce() {
	tokenA, tokenB, gameID := s.newActiveGame()

	state := s.get(tokenA, fmt.Sprintf("/v1/games/%d", gameID))
	hourBefore := state["current_hour"].(float64)

	var wg sync.WaitGroup
	for _, token := range []string{tokenA, tokenB} {
		wg.Add(1)
		go func(tk string) {
			defer wg.Done()
			raw, _ := json.Marshal(map[string]any{})
			req, _ := http.NewRequest(http.MethodPost, s.server.URL+fmt.Sprintf("/v1/games/%d/end-turn", gameID), bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+tk)
			req.Header.Set("Idempotency-Key", uuid.NewString())
			resp, err := s.client.Do(req)
			if err == nil {
				resp.Body.Close()
			}
		}(token)
	}
	wg.Wait()

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d", gameID))
	s.Require().Equal(hourBefore-1, after["current_hour"].(float64), "clock must decrement exactly once")
}

func (s *IntegrationTestSuite) TestCompletedGameRejectsOperations() {
	token := s.signup()
	created := s.post(token, uuid.NewString(), "/v1/games", map[string]any{
		"handle": "solo_closer", "max_hours": 1,
	}, http.StatusCreated)
	gameID := int64(created["game_id"].(float64))
	s.post(token, uuid.NewString(), fmt.Sprintf("/v1/games/%d/start", gameID), map[string]any{}, http.StatusOK)

	// Sole player ending the turn burns the only hour and ends the game.
	out := s.post(token, uuid.NewString(), fmt.Sprintf("/v1/games/%d/end-turn", gameID), map[string]any{}, http.StatusOK)
	s.Require().True(out["game_over"].(bool))

	state := s.get(token, fmt.Sprintf("/v1/games/%d", gameID))
	s.Require().Equal("completed", state["status"].(string))
	s.Require().Equal(float64(0), state["current_hour"].(float64))

	storeID, productID, _ := s.firstListing(token, gameID)
	s.post(token, uuid.NewString(), fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"store_id": storeID, "product_id": productID, "quantity": 1,
	}, http.StatusConflict)
	s.post(token, uuid.NewString(), fmt.Sprintf("/v1/games/%d/end-turn", gameID), map[string]any{}, http.StatusConflict)
}

func (s *IntegrationTestSuite) TestEndTurnTwiceIsNoop() {
	tokenA, _, gameID := s.newActiveGame()

	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/end-turn", gameID), map[string]any{}, http.StatusOK)
	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/end-turn", gameID), map[string]any{}, http.StatusOK)
	s.Require().False(out["hour_advanced"].(bool))
}

func (s *IntegrationTestSuite) TestTravelMovesAndCharges() {
	tokenA, _, gameID := s.newActiveGame()

	me := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	fromBorough := me["borough_id"].(float64)
	cashBefore := me["cash_cents"].(float64)

	boroughs := s.get(tokenA, "/v1/catalog/boroughs")["boroughs"].([]any)
	var destination float64
	for _, raw := range boroughs {
		b := raw.(map[string]any)
		if b["id"].(float64) != fromBorough {
			destination = b["id"].(float64)
			break
		}
	}
	s.Require().NotZero(destination)

	// Subway: flat fare, unbounded range.
	var subwayID float64
	for _, raw := range s.get(tokenA, "/v1/catalog/transports")["transports"].([]any) {
		t := raw.(map[string]any)
		if t["name"].(string) == "Subway" {
			subwayID = t["id"].(float64)
		}
	}
	s.Require().NotZero(subwayID)

	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/travel", gameID), map[string]any{
		"borough_id": destination, "transport_id": subwayID,
	}, http.StatusOK)
	s.Require().Equal(destination, out["borough_id"].(float64))
	s.Require().Equal(cashBefore-out["cost_cents"].(float64), out["cash_cents"].(float64))

	after := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	s.Require().Equal(destination, after["borough_id"].(float64))
}

func (s *IntegrationTestSuite) TestTravelBeyondWalkRangeRejected() {
	tokenA, _, gameID := s.newActiveGame()

	me := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	fromBorough := me["borough_id"].(float64)

	// Find the farthest borough and try to walk there. The default map has
	// pairs beyond walking range from every starting point.
	boroughs := s.get(tokenA, "/v1/catalog/boroughs")["boroughs"].([]any)
	var fromX, fromY float64
	for _, raw := range boroughs {
		b := raw.(map[string]any)
		if b["id"].(float64) == fromBorough {
			fromX, fromY = b["x"].(float64), b["y"].(float64)
		}
	}
	var farthest float64
	var farthestDist float64
	for _, raw := range boroughs {
		b := raw.(map[string]any)
		dx, dy := b["x"].(float64)-fromX, b["y"].(float64)-fromY
		d := dx*dx + dy*dy
		if d > farthestDist {
			farthestDist = d
			farthest = b["id"].(float64)
		}
	}

	var walkID float64
	for _, raw := range s.get(tokenA, "/v1/catalog/transports")["transports"].([]any) {
		t := raw.(map[string]any)
		if t["name"].(string) == "Walk" {
			walkID = t["id"].(float64)
		}
	}
	s.Require().NotZero(walkID)

	s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/travel", gameID), map[string]any{
		"borough_id": farthest, "transport_id": walkID,
	}, http.StatusBadRequest)
}

func (s *IntegrationTestSuite) TestLoanTakeAndRepay() {
	tokenA, _, gameID := s.newActiveGame()

	me := s.get(tokenA, fmt.Sprintf("/v1/games/%d/me", gameID))
	cashBefore := me["cash_cents"].(float64)

	out := s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/loans/take", gameID), map[string]any{
		"amount_cents": 50000,
	}, http.StatusOK)
	s.Require().Equal(cashBefore+50000, out["cash_cents"].(float64))
	s.Require().Equal(float64(50000), out["loan_cents"].(float64))

	out = s.post(tokenA, uuid.NewString(), fmt.Sprintf("/v1/games/%d/loans/repay", gameID), map[string]any{
		"amount_cents": 50000,
	}, http.StatusOK)
	s.Require().Equal(cashBefore, out["cash_cents"].(float64))
	s.Require().Equal(float64(0), out["loan_cents"].(float64))
}

func (s *IntegrationTestSuite) TestJoinActiveGameRejected() {
	_, _, gameID := s.newActiveGame()
	tokenC := s.signup()
	s.post(tokenC, uuid.NewString(), fmt.Sprintf("/v1/games/%d/join", gameID), map[string]any{
		"handle": "late_arrival",
	}, http.StatusConflict)
}

func (s *IntegrationTestSuite) TestUnauthenticatedRequestRejected() {
	resp, err := s.client.Get(s.server.URL + "/v1/catalog/products")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}
