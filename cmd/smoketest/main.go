package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"rlserver-tools/internal/config"
	"rlserver-tools/internal/smoke"
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
		Name:    "smoketest",
		Usage:   "visit the admin site in a browser and capture screenshots",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (default ./config.yaml)",
				EnvVars: []string{"RLTOOLS_CONFIG"},
			},
			&cli.StringFlag{Name: "base-url", Usage: "site base url (default from smoke.base_url)"},
			&cli.BoolFlag{Name: "headless", Usage: "run the browser without a window"},
			&cli.StringFlag{Name: "out", Usage: "screenshot directory (default from smoke.screenshot_dir)"},
			&cli.BoolFlag{Name: "install", Usage: "install the playwright driver and chromium first"},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON instead of the text summary"},
		},
		Action: runSmoke,
	}
}

func runSmoke(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	applySmokeOverrides(c, &cfg.Smoke)
	if err := cfg.Smoke.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Options{Env: cfg.App.Env, Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(c.Context, cfg.Smoke.Timeout)
	defer cancel()

	launcher := smoke.NewPlaywrightLauncher(smoke.PlaywrightOptions{
		Headless:          cfg.Smoke.Headless,
		NavigationTimeout: cfg.Smoke.NavigationTimeout,
		Install:           c.Bool("install"),
	})
	runner := smoke.NewRunner(launcher, smoke.Options{
		BaseURL:   cfg.Smoke.BaseURL,
		OutputDir: cfg.Smoke.ScreenshotDir,
	}, log)

	report, err := runner.Run(ctx)
	if c.Bool("json") {
		if encErr := report.WriteJSON(c.App.Writer); encErr != nil {
			log.Warn("write json report failed", zap.Error(encErr))
		}
	} else {
		report.WriteSummary(c.App.Writer)
	}
	if err != nil {
		log.Error("smoke test failed",
			zap.String("run_id", report.RunID),
			zap.String("stage", string(report.Stage)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func applySmokeOverrides(c *cli.Context, smokeCfg *config.SmokeConfig) {
	if c.IsSet("base-url") {
		smokeCfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("headless") {
		smokeCfg.Headless = c.Bool("headless")
	}
	if c.IsSet("out") {
		smokeCfg.ScreenshotDir = c.String("out")
	}
}
