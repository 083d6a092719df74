package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"waxtrade/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type listingsPayload struct {
	Listings []game.ListingView `json:"listings"`
}

type transactionsPayload struct {
	Transactions []game.TransactionView `json:"transactions"`
}

type productsPayload struct {
	Products []game.Product `json:"products"`
}

type storesPayload struct {
	Stores []game.Store `json:"stores"`
}

type boroughsPayload struct {
	Boroughs []game.Borough `json:"boroughs"`
}

type transportsPayload struct {
	Transports []game.Transport `json:"transports"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.2f", min))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderGameState(raw map[string]any) error {
	v, err := decodeInto[game.GameView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== GAME #%d ==\n", v.ID)
	fmt.Printf("Status:      %s\n", v.Status)
	fmt.Printf("Hours left:  %d / %d\n", v.CurrentHour, v.MaxHours)
	if v.EndedAt != nil {
		fmt.Printf("Ended:       %s\n", v.EndedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	accent.Println("Players")
	fmt.Printf("%-6s %-24s %-10s %-10s\n", "ID", "HANDLE", "BOROUGH", "TURN")
	for _, p := range v.Players {
		turn := "playing"
		if p.TurnCompleted {
			turn = "done"
		}
		fmt.Printf("%-6d %-24s %-10d %-10s\n", p.PlayerID, truncate(p.Handle, 24), p.BoroughID, turn)
	}
	fmt.Println()
	return nil
}

func renderPlayerState(raw map[string]any) error {
	v, err := decodeInto[game.PlayerView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", v.Handle)
	fmt.Printf("Cash:        %s\n", formatCents(v.CashCents))
	if v.LoanCents > 0 {
		fmt.Printf("Loan:        %s\n", danger.Sprint(formatCents(v.LoanCents)))
	}
	fmt.Printf("Borough:     %d\n", v.BoroughID)
	fmt.Printf("Crate:       %d / %d space\n", v.UsedSpace, v.Capacity)
	fmt.Printf("Actions:     %d remaining\n", v.ActionsRemaining)
	if v.TurnCompleted {
		printInfo("Turn complete; waiting on the other players.")
	}

	fmt.Println()
	accent.Println("Inventory")
	if len(v.Items) == 0 {
		printInfo("Crate is empty.")
	} else {
		fmt.Printf("%-6s %-26s %-18s %-10s %-6s %12s\n", "ID", "TITLE", "ARTIST", "COND", "QUAL", "PAID")
		for _, it := range v.Items {
			fmt.Printf("%-6d %-26s %-18s %-10s %-6d %12s\n",
				it.ID,
				truncate(it.Title, 26),
				truncate(it.Artist, 18),
				string(it.Condition),
				it.QualityRating,
				formatCents(it.PurchasePriceCents),
			)
		}
	}
	fmt.Println()
	return nil
}

func renderListings(raw map[string]any, storeID int64) error {
	payload, err := decodeInto[listingsPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== STORE #%d BINS ==\n", storeID)
	if len(payload.Listings) == 0 {
		printInfo("Nothing in the bins right now.")
		return nil
	}
	fmt.Printf("%-6s %-26s %-18s %-8s %-10s %-6s %-6s %12s\n", "ID", "TITLE", "ARTIST", "GENRE", "COND", "QUAL", "QTY", "PRICE")
	for _, l := range payload.Listings {
		fmt.Printf("%-6d %-26s %-18s %-8s %-10s %-6d %-6d %12s\n",
			l.ID,
			truncate(l.Title, 26),
			truncate(l.Artist, 18),
			truncate(l.Genre, 8),
			string(l.Condition),
			l.QualityRating,
			l.Quantity,
			formatCents(l.CurrentPriceCents),
		)
	}
	fmt.Println()
	return nil
}

func renderTravelResult(raw map[string]any) error {
	v, err := decodeInto[game.TravelResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TRAVEL ==")
	fmt.Printf("Fare:        %s\n", formatCents(v.CostCents))
	fmt.Printf("Distance:    %.2f\n", v.Distance)
	fmt.Printf("Hours used:  %d\n", v.HoursConsumed)
	fmt.Printf("Cash:        %s\n", formatCents(v.CashCents))
	if v.GameOver {
		printWarn("That was the last hour. Game over!")
	} else if v.HourAdvanced {
		printSuccess(fmt.Sprintf("The clock advanced: %d hours remain.", v.NewHour))
	} else if v.TurnCompleted {
		printInfo("Turn complete; waiting on the other players.")
	}
	fmt.Println()
	return nil
}

func renderTransactions(raw map[string]any) error {
	payload, err := decodeInto[transactionsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TRANSACTION LOG ==")
	if len(payload.Transactions) == 0 {
		printInfo("No transactions yet.")
		return nil
	}
	fmt.Printf("%-6s %-8s %-14s %-6s %12s %-6s %-18s\n", "ID", "PLAYER", "TYPE", "QTY", "PRICE", "HOUR", "AT")
	for _, t := range payload.Transactions {
		fmt.Printf("%-6d %-8d %-14s %-6d %12s %-6d %-18s\n",
			t.ID,
			t.PlayerID,
			t.Type,
			t.Quantity,
			formatCents(t.PriceCents),
			t.Hour,
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
	return nil
}

func renderCatalog(kind string, raw map[string]any) error {
	switch kind {
	case "products":
		payload, err := decodeInto[productsPayload](raw)
		if err != nil {
			return err
		}
		accent.Println("\n== RECORDS ==")
		fmt.Printf("%-6s %-26s %-20s %-10s %12s %-6s\n", "ID", "TITLE", "ARTIST", "GENRE", "BASE", "SPACE")
		for _, p := range payload.Products {
			fmt.Printf("%-6d %-26s %-20s %-10s %12s %-6d\n",
				p.ID, truncate(p.Title, 26), truncate(p.Artist, 20), p.Genre,
				formatCents(p.BasePriceCents), p.SpaceRequired)
		}
	case "stores":
		payload, err := decodeInto[storesPayload](raw)
		if err != nil {
			return err
		}
		accent.Println("\n== STORES ==")
		fmt.Printf("%-6s %-22s %-10s %-12s %-8s\n", "ID", "NAME", "BOROUGH", "SPECIALTY", "MULT")
		for _, st := range payload.Stores {
			fmt.Printf("%-6d %-22s %-10d %-12s %-8.2f\n",
				st.ID, truncate(st.Name, 22), st.BoroughID, st.SpecialtyGenre, st.PriceMultiplier)
		}
	case "boroughs":
		payload, err := decodeInto[boroughsPayload](raw)
		if err != nil {
			return err
		}
		accent.Println("\n== BOROUGHS ==")
		fmt.Printf("%-6s %-16s %-8s %8s %8s\n", "ID", "NAME", "MOD", "X", "Y")
		for _, b := range payload.Boroughs {
			fmt.Printf("%-6d %-16s %-8.2f %8.1f %8.1f\n", b.ID, b.Name, b.PriceModifier, b.X, b.Y)
		}
	case "transports":
		payload, err := decodeInto[transportsPayload](raw)
		if err != nil {
			return err
		}
		accent.Println("\n== TRANSPORTS ==")
		fmt.Printf("%-6s %-12s %12s %-8s %-8s %-10s\n", "ID", "NAME", "BASE FARE", "SPEED", "RANGE", "PER-DIST")
		for _, t := range payload.Transports {
			rangeStr := "any"
			if t.MaxRange > 0 {
				rangeStr = fmt.Sprintf("%.1f", t.MaxRange)
			}
			perDist := "no"
			if t.IsDistanceBased {
				perDist = "yes"
			}
			fmt.Printf("%-6d %-12s %12s %-8.1f %-8s %-10s\n",
				t.ID, t.Name, formatCents(t.BaseCostCents), t.SpeedFactor, rangeStr, perDist)
		}
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func formatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%s.%02d", sign, comma(v/100), v%100)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
