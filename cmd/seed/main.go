// Command seed upserts the demo customers and, optionally, an operator account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vaultline/vaultline/internal/config"
	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/infra"
	"github.com/vaultline/vaultline/internal/logging"
	"github.com/vaultline/vaultline/internal/secure"
)

func date(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

var demoUsers = []identity.NewUser{
	{
		Email:         "rvsanchez255@gmail.com",
		Phone:         "+1 (555) 123-4567",
		Password:      "Roberto99",
		FirstName:     "Roberto",
		MiddleName:    "V.",
		LastName:      "Sanchez",
		DateOfBirth:   date("1989-07-12"),
		Gender:        "male",
		Address:       "123 Elm Street",
		City:          "San Diego",
		State:         "California",
		Country:       "USA",
		AccountNumber: "1048293751",
		AccountType:   "checking",
		BalanceCents:  2_450_075,
		Currency:      "USD",
		IsVerified:    true,
		KYCLevel:      "Tier 2",
		ProfileImage:  "https://randomuser.me/api/portraits/men/10.jpg",
	},
	{
		Email:         "anthonygurrie@gmail.com",
		Phone:         "+1 (929) 542-7566",
		Password:      "securepass456",
		FirstName:     "Anthony",
		LastName:      "Gurrie",
		DateOfBirth:   date("1992-03-21"),
		Gender:        "male",
		Address:       "45 Maple Avenue",
		City:          "New York",
		State:         "New York",
		Country:       "USA",
		AccountNumber: "1082947563",
		AccountType:   "savings",
		BalanceCents:  8_920_050,
		Currency:      "USD",
		KYCLevel:      "Tier 1",
		ProfileImage:  "https://randomuser.me/api/portraits/men/20.jpg",
	},
}

func main() {
	adminEmail := flag.String("admin-email", "", "also upsert an operator account with this email")
	adminPassword := flag.String("admin-password", "", "password for the operator account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDev())
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required to seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	if err := infra.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("migrate postgres")
	}

	cipher, err := secure.NewCipher(cfg.EncryptionKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build cipher")
	}
	users := identity.NewService(identity.NewPostgresRepository(db, cipher, logger), logger)

	seeds := demoUsers
	if *adminEmail != "" {
		seeds = append(seeds, identity.NewUser{Email: *adminEmail, Password: *adminPassword, Role: identity.RoleAdmin, IsVerified: true})
	}
	for _, u := range seeds {
		saved, err := users.Upsert(ctx, u)
		if err != nil {
			logger.Fatal().Err(err).Str("email", u.Email).Msg("seed user")
		}
		logger.Info().Str("email", saved.Email).Str("role", saved.Role).Msg("user seeded")
	}
	logger.Info().Int("count", len(seeds)).Msg("seed complete")
}
