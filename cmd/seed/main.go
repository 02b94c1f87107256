package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"comics-commerce/internal/config"
	"comics-commerce/internal/domain/model"
	pg "comics-commerce/internal/infra/db/postgres"
	"comics-commerce/internal/infra/logging"
	red "comics-commerce/internal/infra/redis"
	"comics-commerce/internal/infra/web"
	"comics-commerce/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
)

// seed prepares a predictable catalogue for manual end-to-end testing:
// subscription plans, a few comics and a demo customer with a signed token.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	reset := flag.Bool("reset", false, "wipe all tables and the Redis cache first")
	demoUser := flag.String("demo-user", "demo-user", "id of the demo customer (empty to skip)")
	demoBalance := flag.Int64("demo-balance", 100_000, "initial demo balance in minor units")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		boot := logging.New(config.LogConfig{Level: "info"}, true)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	if *reset {
		logger.Info().Msg("[reset] wiping Redis cache and all tables")
		if err := redisClient.FlushDB(ctx); err != nil {
			logger.Fatal().Err(err).Msg("flush redis")
		}
		if _, err := pool.Exec(ctx, `
			TRUNCATE
				users, subscription_plans, user_subscriptions, payments, transactions,
				products, product_variants, carts, cart_items,
				orders, order_items, order_status_history
			RESTART IDENTITY CASCADE;
		`); err != nil {
			logger.Fatal().Err(err).Msg("truncate")
		}
	}

	// ---- Plans ----
	planUC := usecase.NewPlanUseCase(pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL))
	plans := []struct {
		ID    string
		Name  string
		Days  int
		Price int64
	}{
		{"monthly", "Monthly", 30, 49_900},
		{"quarterly", "Quarterly", 90, 129_900},
		{"yearly", "Yearly", 365, 449_900},
	}
	for _, s := range plans {
		p, err := planUC.Upsert(ctx, s.ID, s.Name, s.Days, s.Price, true)
		if err != nil {
			logger.Fatal().Err(err).Str("plan", s.ID).Msg("upsert plan")
		}
		fmt.Printf("plan: %s (days=%d, price=%d)\n", p.ID, p.DurationDays, p.Price)
	}

	// ---- Catalogue ----
	if err := seedProducts(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("seed products")
	}

	// ---- Demo customer ----
	if *demoUser == "" {
		fmt.Println("Seeding complete.")
		return
	}
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	u, err := userUC.EnsureUser(ctx, *demoUser, *demoUser+"@example.com")
	if err != nil {
		logger.Fatal().Err(err).Msg("demo user")
	}
	if top := *demoBalance - u.Balance; top > 0 {
		ledger := usecase.NewLedgerUseCase(userRepo, pg.NewTransactionRepo(pool), tm, cfg.Payment.Currency, logger)
		bal, err := ledger.Credit(ctx, u.ID, top, model.TransactionDeposit, "Demo balance")
		if err != nil {
			logger.Fatal().Err(err).Msg("demo balance")
		}
		fmt.Printf("demo balance: %d\n", bal)
	}
	tok, err := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Mint(u.ID, u.Email, 7*24*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("mint token")
	}
	fmt.Printf("demo user: %s\nAuthorization: Bearer %s\n", u.ID, tok)
	fmt.Println("Seeding complete.")
}

type seedProduct struct {
	ID       string
	Title    string
	Price    int64
	Stock    int
	Variants []seedVariant
}

type seedVariant struct {
	ID    string
	Name  string
	Price *int64
	Stock int
}

func price(v int64) *int64 { return &v }

// Products have no write API; the catalogue is owned by the CMS, so demo
// rows are inserted directly.
func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []seedProduct{
		{ID: "watchmen", Title: "Watchmen", Price: 2_990_00, Stock: 12, Variants: []seedVariant{
			{ID: "hardcover", Name: "Hardcover", Price: price(4_490_00), Stock: 3},
		}},
		{ID: "maus", Title: "Maus", Price: 1_850_00, Stock: 7},
		{ID: "sandman-1", Title: "The Sandman Vol. 1", Price: 2_100_00, Stock: 1},
	}
	for _, p := range products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, title, price, stock, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, price = EXCLUDED.price, stock = EXCLUDED.stock, active = TRUE`,
			p.ID, p.Title, p.Price, p.Stock); err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, `
				INSERT INTO product_variants (product_id, id, name, price, stock)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (product_id, id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock`,
				p.ID, v.ID, v.Name, v.Price, v.Stock); err != nil {
				return fmt.Errorf("variant %s/%s: %w", p.ID, v.ID, err)
			}
		}
		fmt.Printf("product: %s (price=%d, stock=%d)\n", p.ID, p.Price, p.Stock)
	}
	return nil
}
