package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"waxtrade/internal/auth"
	"waxtrade/internal/config"
	"waxtrade/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	AccountID int64
	Email     string
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	auth *auth.Service
	game *game.Service
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authSvc *auth.Service, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		auth: authSvc,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/catalog/products", s.handleCatalogProducts)
			r.Get("/catalog/stores", s.handleCatalogStores)
			r.Get("/catalog/boroughs", s.handleCatalogBoroughs)
			r.Get("/catalog/transports", s.handleCatalogTransports)

			r.Post("/games", s.handleCreateGame)
			r.Get("/games/{id}", s.handleGameState)
			r.Post("/games/{id}/join", s.handleJoinGame)
			r.Post("/games/{id}/start", s.handleStartGame)
			r.Get("/games/{id}/me", s.handlePlayerState)
			r.Get("/games/{id}/stores/{store_id}/listings", s.handleStoreListings)
			r.Get("/games/{id}/stores/{store_id}/quotes", s.handleSellQuotes)
			r.Get("/games/{id}/transactions", s.handleTransactionLog)

			r.Post("/games/{id}/buy", s.handleBuy)
			r.Post("/games/{id}/sell", s.handleSell)
			r.Post("/games/{id}/travel", s.handleTravel)
			r.Post("/games/{id}/end-turn", s.handleEndTurn)
			r.Post("/games/{id}/loans/take", s.handleTakeLoan)
			r.Post("/games/{id}/loans/repay", s.handleRepayLoan)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		accountID, email, err := s.auth.VerifyAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			AccountID: accountID,
			Email:     email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.AccountID == 0 {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCatalogProducts(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) handleCatalogStores(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListStores(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": out})
}

func (s *Server) handleCatalogBoroughs(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListBoroughs(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"boroughs": out})
}

func (s *Server) handleCatalogTransports(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListTransports(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transports": out})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Handle   string `json:"handle"`
		MaxHours int    `json:"max_hours"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateGame(r.Context(), game.CreateGameInput{
		AccountID:      user.AccountID,
		Handle:         in.Handle,
		MaxHours:       in.MaxHours,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	out, err := s.game.GameState(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in struct {
		Handle string `json:"handle"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.JoinGame(r.Context(), game.JoinGameInput{
		AccountID:      user.AccountID,
		GameID:         gameID,
		Handle:         in.Handle,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if err := s.game.StartGame(r.Context(), game.StartGameInput{
		AccountID:      user.AccountID,
		GameID:         gameID,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	out, err := s.game.PlayerState(r.Context(), gameID, user.AccountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStoreListings(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	storeID, err := pathID(r, "store_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	out, err := s.game.StoreListings(r.Context(), gameID, storeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": out})
}

// handleSellQuotes returns sell prices for the caller's items at a store.
// Items are passed as ?items=1,2,3.
func (s *Server) handleSellQuotes(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	storeID, err := pathID(r, "store_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	var itemIDs []int64
	for _, part := range strings.Split(r.URL.Query().Get("items"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		itemIDs = append(itemIDs, id)
	}
	out, err := s.game.GetSellPrices(r.Context(), user.AccountID, gameID, storeID, itemIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": out})
}

func (s *Server) handleTransactionLog(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.game.TransactionLog(r.Context(), gameID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in struct {
		StoreID   int64 `json:"store_id"`
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
		ListingID int64 `json:"listing_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Buy(r.Context(), game.BuyInput{
		AccountID:      user.AccountID,
		GameID:         gameID,
		StoreID:        in.StoreID,
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		ListingID:      in.ListingID,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in struct {
		StoreID         int64 `json:"store_id"`
		ProductID       int64 `json:"product_id"`
		Quantity        int   `json:"quantity"`
		InventoryItemID int64 `json:"inventory_item_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Sell(r.Context(), game.SellInput{
		AccountID:       user.AccountID,
		GameID:          gameID,
		StoreID:         in.StoreID,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		InventoryItemID: in.InventoryItemID,
		IdempotencyKey:  idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTravel(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in struct {
		BoroughID   int64 `json:"borough_id"`
		TransportID int64 `json:"transport_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Travel(r.Context(), game.TravelInput{
		AccountID:      user.AccountID,
		GameID:         gameID,
		BoroughID:      in.BoroughID,
		TransportID:    in.TransportID,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	out, err := s.game.EndTurn(r.Context(), game.EndTurnInput{
		AccountID:      user.AccountID,
		GameID:         gameID,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTakeLoan(w http.ResponseWriter, r *http.Request) {
	s.handleLoan(w, r, s.game.TakeLoan)
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, r *http.Request) {
	s.handleLoan(w, r, s.game.RepayLoan)
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request, op func(context.Context, game.LoanInput) (game.LoanResult, error)) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := op(r.Context(), game.LoanInput{
		AccountID:      user.AccountID,
		GameID:         gameID,
		AmountCents:    in.AmountCents,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency), errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrOutOfStock),
		errors.Is(err, game.ErrInventoryFull),
		errors.Is(err, game.ErrQuantityExceedsHolding),
		errors.Is(err, game.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrAlreadyJoined),
		errors.Is(err, game.ErrGameFull):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrGameNotFound),
		errors.Is(err, game.ErrPlayerNotFound),
		errors.Is(err, game.ErrStoreNotFound),
		errors.Is(err, game.ErrProductNotFound),
		errors.Is(err, game.ErrTransportNotFound),
		errors.Is(err, game.ErrBoroughNotFound),
		errors.Is(err, game.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
