package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"waxtrade/internal/auth"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) CreateGame(ctx context.Context, accessToken, handle string, maxHours int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", accessToken, map[string]any{
		"handle":    handle,
		"max_hours": maxHours,
	}, &out, idem)
	return out, err
}

func (c *Client) JoinGame(ctx context.Context, accessToken string, gameID int64, handle, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/join", gameID), accessToken, map[string]any{
		"handle": handle,
	}, &out, idem)
	return out, err
}

func (c *Client) StartGame(ctx context.Context, accessToken string, gameID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/start", gameID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) GameState(ctx context.Context, accessToken string, gameID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d", gameID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) PlayerState(ctx context.Context, accessToken string, gameID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/me", gameID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) StoreListings(ctx context.Context, accessToken string, gameID, storeID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/stores/%d/listings", gameID, storeID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) SellQuotes(ctx context.Context, accessToken string, gameID, storeID int64, itemIDs []int64) (map[string]any, error) {
	parts := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	path := fmt.Sprintf("/v1/games/%d/stores/%d/quotes?items=%s", gameID, storeID, strings.Join(parts, ","))
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Transactions(ctx context.Context, accessToken string, gameID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/transactions", gameID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Buy(ctx context.Context, accessToken string, gameID, storeID, productID, listingID int64, qty int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/buy", gameID), accessToken, map[string]any{
		"store_id":   storeID,
		"product_id": productID,
		"listing_id": listingID,
		"quantity":   qty,
	}, &out, idem)
	return out, err
}

func (c *Client) Sell(ctx context.Context, accessToken string, gameID, storeID, productID, itemID int64, qty int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/sell", gameID), accessToken, map[string]any{
		"store_id":          storeID,
		"product_id":        productID,
		"inventory_item_id": itemID,
		"quantity":          qty,
	}, &out, idem)
	return out, err
}

func (c *Client) Travel(ctx context.Context, accessToken string, gameID, boroughID, transportID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/travel", gameID), accessToken, map[string]any{
		"borough_id":   boroughID,
		"transport_id": transportID,
	}, &out, idem)
	return out, err
}

func (c *Client) EndTurn(ctx context.Context, accessToken string, gameID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/end-turn", gameID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) TakeLoan(ctx context.Context, accessToken string, gameID, amountCents int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/loans/take", gameID), accessToken, map[string]any{
		"amount_cents": amountCents,
	}, &out, idem)
	return out, err
}

func (c *Client) RepayLoan(ctx context.Context, accessToken string, gameID, amountCents int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/loans/repay", gameID), accessToken, map[string]any{
		"amount_cents": amountCents,
	}, &out, idem)
	return out, err
}

func (c *Client) Catalog(ctx context.Context, accessToken, kind string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/catalog/"+kind, accessToken, nil, &out, "")
	return out, err
}

// Do replays an arbitrary queued command against the API.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
