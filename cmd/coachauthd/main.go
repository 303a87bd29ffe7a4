// Command coachauthd runs the authentication service: the mock API
// endpoints backed by the users table, the server-issued token store and
// the local identity provider.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	auth "github.com/coachkit/go-auth"
	"github.com/coachkit/go-auth/provider/local"
	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type config struct {
	Addr          string        `env:"ADDR" envDefault:":3000"`
	DatabaseDSN   string        `env:"DATABASE_DSN" envDefault:"file:coachauth.db?cache=shared"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	SeedStubUser  bool          `env:"SEED_STUB_USER" envDefault:"true"`
	PurgeInterval time.Duration `env:"SESSION_PURGE_INTERVAL" envDefault:"1h"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := auth.CreateUsersTable(ctx, db); err != nil {
		log.Fatalf("create users table: %v", err)
	}

	users := auth.NewUsersRepository(db)
	if cfg.SeedStubUser {
		if err := seedStubUser(ctx, users); err != nil {
			log.Fatalf("seed stub user: %v", err)
		}
	}

	tokens := auth.NewTokenStore(auth.WithTokenTTL(cfg.TokenTTL))
	provider := local.New(users, tokens)
	routes := auth.DefaultRouteConfig()

	store := auth.NewStore(provider, auth.NewRolesRepository(db))
	store.Initialize(ctx)
	defer store.Close()

	unsubscribe := store.Subscribe(func(st auth.State) {
		log.Printf("auth state: status=%s role=%s loading=%t err=%q",
			st.Status(), st.Role, st.Loading, st.Err)
	})
	defer unsubscribe()

	go func() {
		ticker := time.NewTicker(cfg.PurgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			tokens.PurgeExpired()
		}
	}()

	controller := auth.NewController(
		auth.WithControllerProvider(provider),
		auth.WithControllerSessions(tokens),
		auth.WithControllerRevoker(tokens),
		auth.WithControllerRoutes(routes),
	)

	app := fiber.New()
	controller.RegisterRoutes(app)

	log.Fatal(app.Listen(cfg.Addr))
}

// seedStubUser provisions the development login used by the mock API.
func seedStubUser(ctx context.Context, users auth.Users) error {
	if _, err := users.GetByEmail(ctx, "test@coach.ch"); err == nil {
		return nil
	}

	hash, err := auth.HashPassword("test123")
	if err != nil {
		return err
	}

	_, err = users.Create(ctx, &auth.User{
		Email:        "test@coach.ch",
		Role:         auth.RoleStaff,
		FirstName:    "Test",
		LastName:     "Coach",
		Phone:        "0123456789",
		Birthdate:    "1990-01-01",
		Street:       "Musterstrasse",
		StreetNr:     "1",
		Zip:          "8000",
		City:         "Zürich",
		PasswordHash: hash,
	})
	return err
}
