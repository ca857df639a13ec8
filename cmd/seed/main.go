package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	"github.com/sqlc-dev/pqtype"

	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/scheduler"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// seedCategory pairs a category definition with the spending profile used
// to generate plausible random transactions for it.
type seedCategory struct {
	params   store.CategoryParams
	minCents int64
	maxCents int64
}

var expenseCategories = []seedCategory{
	{store.CategoryParams{Name: "Groceries", Kind: store.TypeExpense, Color: "#4CAF50", Icon: "cart"}, 800, 15000},
	{store.CategoryParams{Name: "Rent", Kind: store.TypeExpense, Color: "#795548", Icon: "home"}, 120000, 120000},
	{store.CategoryParams{Name: "Transport", Kind: store.TypeExpense, Color: "#2196F3", Icon: "bus"}, 250, 6000},
	{store.CategoryParams{Name: "Dining Out", Kind: store.TypeExpense, Color: "#FF9800", Icon: "restaurant"}, 900, 9000},
	{store.CategoryParams{Name: "Utilities", Kind: store.TypeExpense, Color: "#9C27B0", Icon: "bolt"}, 3000, 22000},
	{store.CategoryParams{Name: "Entertainment", Kind: store.TypeExpense, Color: "#E91E63", Icon: "film"}, 500, 8000},
}

var incomeCategories = []seedCategory{
	{store.CategoryParams{Name: "Salary", Kind: store.TypeIncome, Color: "#8BC34A", Icon: "banknote"}, 350000, 350000},
	{store.CategoryParams{Name: "Freelance", Kind: store.TypeIncome, Color: "#00BCD4", Icon: "laptop"}, 15000, 90000},
}

func main() {
	count := flag.Int("count", 500, "number of random transactions to insert")
	reset := flag.Bool("reset", false, "truncate all tables before seeding")
	seed := flag.Int64("seed", 0, "RNG seed, 0 picks one from the clock")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	if *reset {
		logger.Info("Resetting all data")
		if err := st.ResetData(ctx); err != nil {
			log.Fatalf("Failed to reset data: %v", err)
		}
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	logger.Info("Seeding demo data", "transactions", *count, "seed", *seed)

	if err := run(ctx, st, rng, *count); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	logger.Info("Seed complete")
}

func run(ctx context.Context, st *store.Store, rng *rand.Rand, count int) error {
	if _, err := st.CreateUser(ctx, store.UserParams{
		Name: "Sam Carter", Email: "sam@example.com", DefaultCurrency: "USD",
	}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	categoryIDs := make(map[string]int64)
	for _, sc := range append(append([]seedCategory{}, expenseCategories...), incomeCategories...) {
		c, err := st.CreateCategory(ctx, sc.params)
		if err != nil {
			return fmt.Errorf("create category %s: %w", sc.params.Name, err)
		}
		categoryIDs[c.Name] = c.ID
	}

	if err := seedBudgets(ctx, st, categoryIDs); err != nil {
		return err
	}
	if err := seedRecurring(ctx, st, categoryIDs); err != nil {
		return err
	}

	if err := st.SetSetting(ctx, "default_currency", "USD"); err != nil {
		return fmt.Errorf("set default currency: %w", err)
	}

	txns := randomTransactions(rng, categoryIDs, count)
	if err := st.BatchInsertTransactions(ctx, txns, 500); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	return nil
}

// seedBudgets covers the current and previous month so progress and report
// endpoints have something to show immediately.
func seedBudgets(ctx context.Context, st *store.Store, ids map[string]int64) error {
	limits := map[string]int64{
		"Groceries":  45000,
		"Dining Out": 20000,
		"Transport":  15000,
		"Utilities":  25000,
	}
	now := time.Now().UTC()
	for _, month := range []string{
		utils.FormatMonth(now.AddDate(0, -1, 0)),
		utils.FormatMonth(now),
	} {
		for name, limit := range limits {
			_, err := st.CreateBudget(ctx, store.BudgetParams{
				CategoryID:     ids[name],
				Month:          month,
				LimitCents:     limit,
				Currency:       "USD",
				AlertThreshold: 0.8,
			})
			if err != nil {
				return fmt.Errorf("create budget %s %s: %w", name, month, err)
			}
		}
	}
	return nil
}

func seedRecurring(ctx context.Context, st *store.Store, ids map[string]int64) error {
	rules := []struct {
		desc     string
		kind     string
		cents    int64
		category string
		schedule string
	}{
		{"Monthly rent", store.TypeExpense, 120000, "Rent", "@monthly"},
		{"Salary", store.TypeIncome, 350000, "Salary", "@monthly"},
		{"Streaming subscription", store.TypeExpense, 1499, "Entertainment", "@monthly"},
		{"Transit pass", store.TypeExpense, 8900, "Transport", "@monthly"},
	}
	now := time.Now().UTC()
	for _, r := range rules {
		next, err := scheduler.NextRun(r.schedule, now)
		if err != nil {
			return fmt.Errorf("schedule %q: %w", r.schedule, err)
		}
		_, err = st.CreateRecurring(ctx, store.RecurringParams{
			Description: r.desc,
			Type:        r.kind,
			AmountCents: r.cents,
			Currency:    "USD",
			CategoryID:  sql.NullInt64{Int64: ids[r.category], Valid: true},
			Schedule:    r.schedule,
			NextRunAt:   next,
		})
		if err != nil {
			return fmt.Errorf("create recurring %s: %w", r.desc, err)
		}
	}
	return nil
}

// randomTransactions spreads spending over the past six months, with one
// salary deposit per month and the rest drawn from the expense profiles.
func randomTransactions(rng *rand.Rand, ids map[string]int64, count int) []store.TransactionParams {
	txns := make([]store.TransactionParams, 0, count+6)
	now := time.Now().UTC()

	for monthsAgo := 5; monthsAgo >= 0; monthsAgo-- {
		payday := time.Date(now.Year(), now.Month(), 1, 9, 0, 0, 0, time.UTC).AddDate(0, -monthsAgo, 0)
		txns = append(txns, store.TransactionParams{
			Type:        store.TypeIncome,
			AmountCents: incomeCategories[0].minCents,
			Currency:    "USD",
			Description: "Salary " + utils.FormatMonth(payday),
			CategoryID:  sql.NullInt64{Int64: ids["Salary"], Valid: true},
			OccurredAt:  payday,
		})
	}

	window := int(now.Sub(now.AddDate(0, -6, 0)) / time.Hour)
	for i := 0; i < count; i++ {
		sc := expenseCategories[rng.Intn(len(expenseCategories))]
		cents := sc.minCents
		if sc.maxCents > sc.minCents {
			cents += rng.Int63n(sc.maxCents - sc.minCents)
		}
		occurred := now.Add(-time.Duration(rng.Intn(window)) * time.Hour)

		t := store.TransactionParams{
			Type:        store.TypeExpense,
			AmountCents: cents,
			Currency:    "USD",
			Description: fmt.Sprintf("%s purchase #%d", sc.params.Name, i+1),
			CategoryID:  sql.NullInt64{Int64: ids[sc.params.Name], Valid: true},
			OccurredAt:  occurred,
		}
		// A few entries carry metadata so the JSONB path gets exercised.
		if rng.Intn(10) == 0 {
			t.Metadata = pqtype.NullRawMessage{
				RawMessage: []byte(fmt.Sprintf(`{"source":"seed","merchant":"%s Co"}`, sc.params.Name)),
				Valid:      true,
			}
		}
		txns = append(txns, t)
	}
	return txns
}
