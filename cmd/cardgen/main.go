package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"rlserver-tools/internal/config"
	"rlserver-tools/internal/database"
	"rlserver-tools/internal/model"
	"rlserver-tools/internal/repository/postgres"
	"rlserver-tools/internal/service"
	"rlserver-tools/pkg/logger"
)

var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, logger.SanitizeError(err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cardgen",
		Usage:   "generate recharge card codes into the recharge_cards table",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (default ./config.yaml)",
				EnvVars: []string{"RLTOOLS_CONFIG"},
			},
		},
		DefaultCommand: "generate",
		Commands: []*cli.Command{
			commandGenerate(),
			commandStats(),
			commandShow(),
			commandMigrate(),
		},
	}
}

func commandGenerate() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate cards and insert them in one transaction",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "number of cards (default from cards.count)"},
			&cli.IntFlag{Name: "amount", Usage: "card amount (default from cards.amount)"},
			&cli.IntFlag{Name: "vip-level", Usage: "vip level granted (default from cards.vip_level)"},
			&cli.IntFlag{Name: "duration-days", Usage: "validity in days (default from cards.duration_days)"},
		},
		Action: runGenerate,
	}
}

func commandStats() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "count total, unused and used cards",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "vip-level", Usage: "only count cards of this vip level"},
		},
		Action: runStats,
	}
}

func commandShow() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print one card by code",
		ArgsUsage: "CARD_CODE",
		Action:    runShow,
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the recharge_cards schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "migration directory (default /migrations or ./migrations)"},
		},
		Action: runMigrate,
	}
}

func runGenerate(c *cli.Context) error {
	cfg, err := loadDatabaseConfig(c)
	if err != nil {
		return err
	}
	applyCardOverrides(c, &cfg.Cards)
	if err := cfg.Cards.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, cfg.Cards.Timeout)
	defer cancel()

	return withCardService(ctx, cfg, func(log *zap.Logger, svc *service.RechargeCardService) error {
		cards, err := svc.GenerateAndInsert(ctx, cfg.Cards.Count)
		if err != nil {
			log.Error("generate recharge cards failed", zap.Int("count", cfg.Cards.Count), zap.Error(err))
			return err
		}
		printCards(c.App.Writer, cards)

		// The cards are committed at this point; a failed count is only reported.
		unused, err := svc.UnusedCount(ctx)
		if err != nil {
			log.Warn("count unused recharge cards failed", zap.Error(err))
			return nil
		}
		fmt.Fprintf(c.App.Writer, "unused cards in database: %d\n", unused)
		return nil
	})
}

func runStats(c *cli.Context) error {
	cfg, err := loadDatabaseConfig(c)
	if err != nil {
		return err
	}

	var vipLevel *int
	if c.IsSet("vip-level") {
		level := c.Int("vip-level")
		vipLevel = &level
	}

	ctx, cancel := context.WithTimeout(c.Context, queryTimeout(cfg.Cards))
	defer cancel()

	return withCardService(ctx, cfg, func(log *zap.Logger, svc *service.RechargeCardService) error {
		stats, err := svc.Stats(ctx, vipLevel)
		if err != nil {
			log.Error("count recharge cards failed", zap.Error(err))
			return err
		}
		printStats(c.App.Writer, stats)
		return nil
	})
}

func runShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("show expects exactly one card code")
	}
	cfg, err := loadDatabaseConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, queryTimeout(cfg.Cards))
	defer cancel()

	return withCardService(ctx, cfg, func(_ *zap.Logger, svc *service.RechargeCardService) error {
		card, err := svc.Lookup(ctx, c.Args().First())
		if err != nil {
			return err
		}
		printCard(c.App.Writer, card)
		return nil
	})
}

// queryTimeout lets read-only commands run even when cards.* is invalid for
// generation.
func queryTimeout(cards config.CardsConfig) time.Duration {
	if cards.Timeout > 0 {
		return cards.Timeout
	}
	return 30 * time.Second
}

func loadDatabaseConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// withCardService builds the logger, pool and service shared by the card
// commands and releases them once fn returns.
func withCardService(
	ctx context.Context,
	cfg config.Config,
	fn func(log *zap.Logger, svc *service.RechargeCardService) error,
) error {
	log, err := logger.New(logger.Options{Env: cfg.App.Env, Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck
	log = log.With(zap.String("run_id", uuid.NewString()))

	log.Debug("database target", logger.SanitizeFields(databaseFields(cfg.Database))...)
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Error("connect database failed", zap.String("database", logger.MaskDSN(cfg.Database.DSN())), zap.Error(err))
		return err
	}
	defer pool.Close()

	svc := service.NewRechargeCardService(
		postgres.NewRechargeCardRepository(pool),
		service.NewCodeGenerator(nil),
		service.CardDefaults{
			Amount:       cfg.Cards.Amount,
			VIPLevel:     cfg.Cards.VIPLevel,
			DurationDays: cfg.Cards.DurationDays,
		},
		log,
	)
	return fn(log, svc)
}

func runMigrate(c *cli.Context) error {
	cfg, err := loadDatabaseConfig(c)
	if err != nil {
		return err
	}

	dir, err := database.ResolveMigrationDir(c.String("dir"))
	if err != nil {
		return err
	}
	if err := database.MigrateUp(dir, cfg.Database.DSN()); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, "migrations applied successfully")
	return nil
}

func applyCardOverrides(c *cli.Context, cards *config.CardsConfig) {
	if c.IsSet("count") {
		cards.Count = c.Int("count")
	}
	if c.IsSet("amount") {
		cards.Amount = c.Int("amount")
	}
	if c.IsSet("vip-level") {
		cards.VIPLevel = c.Int("vip-level")
	}
	if c.IsSet("duration-days") {
		cards.DurationDays = c.Int("duration-days")
	}
}

func printCards(w io.Writer, cards []*model.RechargeCard) {
	for _, card := range cards {
		fmt.Fprintf(w, "generated card: %s, vip level: %d, duration: %d days\n",
			card.CardCode, card.VIPLevel, card.DurationDays)
	}
	fmt.Fprintf(w, "\ninserted %d recharge cards into the database\n", len(cards))
}

func printStats(w io.Writer, stats service.CardStats) {
	fmt.Fprintf(w, "total cards: %d\n", stats.Total)
	fmt.Fprintf(w, "unused cards: %d\n", stats.Unused)
	fmt.Fprintf(w, "used cards: %d\n", stats.Used)
}

func printCard(w io.Writer, card *model.RechargeCard) {
	fmt.Fprintf(w, "card: %s\n", card.CardCode)
	fmt.Fprintf(w, "amount: %d, vip level: %d, duration: %d days\n", card.Amount, card.VIPLevel, card.DurationDays)
	fmt.Fprintf(w, "created at: %s\n", card.CreatedAt.UTC().Format(time.RFC3339))
	if !card.IsUsed {
		fmt.Fprintln(w, "status: unused")
		return
	}

	status := "status: used"
	if card.UsedBy != nil {
		status += fmt.Sprintf(" by user %d", *card.UsedBy)
	}
	if card.UsedAt != nil {
		status += " at " + card.UsedAt.UTC().Format(time.RFC3339)
	}
	fmt.Fprintln(w, status)
}

func databaseFields(db config.DatabaseConfig) []zap.Field {
	if strings.TrimSpace(db.URL) != "" {
		return []zap.Field{zap.String("database_url", db.URL)}
	}
	return []zap.Field{
		zap.String("host", db.Host),
		zap.Int("port", db.Port),
		zap.String("name", db.Name),
		zap.String("user", db.User),
		zap.String("password", db.Password),
		zap.String("sslmode", db.SSLMode),
	}
}
