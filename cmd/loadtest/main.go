// Команда loadtest поднимает приложение в одном процессе, гоняет сценарии
// на его сервисах и печатает сводку по методам и классам исходов.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/app"
)

type loadMode string

const (
	modeOrder   loadMode = "order"
	modeOnboard loadMode = "onboard"
	modeCatalog loadMode = "catalog"
)

type config struct {
	mode        loadMode
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	products    int
	priceMinor  int64
	quantity    int
	customerTag string
	outputPath  string
}

func parseFlags(args []string) (config, error) {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg config
	mode := fs.String("mode", string(modeOrder), "scenario: order | onboard | catalog")
	fs.IntVar(&cfg.total, "total", 400, "scenarios to run; caps a timed run only when set explicitly")
	fs.DurationVar(&cfg.duration, "duration", 0, "run for a fixed time instead of a fixed count")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "parallel scenario workers")
	fs.IntVar(&cfg.products, "products", 10, "catalog size seeded before the run")
	fs.Int64Var(&cfg.priceMinor, "price-minor", 1000, "seeded product price in minor units")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity of the single order line")
	fs.StringVar(&cfg.customerTag, "customer-tag", "load", "prefix for generated customer and product names")
	fs.StringVar(&cfg.outputPath, "output", "", "write the JSON report to this file")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		cfg.totalSet = cfg.totalSet || f.Name == "total"
	})

	parsed, err := parseMode(*mode)
	if err != nil {
		return config{}, err
	}
	cfg.mode = parsed

	return cfg, cfg.validate()
}

func parseMode(value string) (loadMode, error) {
	mode := loadMode(strings.TrimSpace(value))
	switch mode {
	case modeOrder, modeOnboard, modeCatalog:
		return mode, nil
	}
	return "", fmt.Errorf("unsupported mode: %s", value)
}

// validate возвращает все нарушения сразу.
func (c config) validate() error {
	var problems []error
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, errors.New(msg))
		}
	}

	require(c.duration >= 0, "duration must be >= 0")
	require(c.duration > 0 || c.total > 0, "total must be > 0 for a counted run")
	require(c.duration <= 0 || !c.totalSet || c.total > 0, "total must be > 0 when it caps a timed run")
	require(c.concurrency > 0, "concurrency must be > 0")
	require(c.products > 0, "products must be > 0")
	require(c.priceMinor >= 0, "price-minor must be >= 0")
	require(c.quantity > 0 && c.quantity <= math.MaxInt32, "quantity must be in 1..2147483647")
	require(strings.TrimSpace(c.customerTag) != "", "customer-tag is required")

	return errors.Join(problems...)
}

// target описывает границу прогона для отчёта.
func (c config) target() string {
	switch {
	case c.duration <= 0:
		return fmt.Sprintf("count:%d", c.total)
	case c.totalSet:
		return fmt.Sprintf("duration:%s,max-total:%d", c.duration, c.total)
	default:
		return fmt.Sprintf("duration:%s", c.duration)
	}
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run возвращает код выхода: 2 - ошибка флагов или окружения,
// 1 - упал прогон или хотя бы один сценарий.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid flags: %v\n", err)
		return 2
	}
	appCfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid service config: %v\n", err)
		return 2
	}
	log.SetLevel(log.WarnLevel)

	result, err := execute(ctx, appCfg, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load test failed: %v\n", err)
		return 1
	}

	if err := renderReport(stdout, result); err != nil {
		_, _ = fmt.Fprintf(stderr, "render report: %v\n", err)
		return 1
	}
	if cfg.outputPath != "" {
		if err := saveReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(stderr, "save report: %v\n", err)
			return 1
		}
	}

	if result.Failed > 0 {
		return 1
	}
	return 0
}

// execute поднимает приложение без сетевых серверов и прогоняет нагрузку.
func execute(ctx context.Context, appCfg app.Config, cfg config) (report, error) {
	shop, err := app.New(ctx, appCfg)
	if err != nil {
		return report{}, err
	}
	defer func() { _ = shop.Close() }()

	if err := shop.Start(ctx); err != nil {
		return report{}, err
	}

	catalog, err := seedCatalog(shop, cfg)
	if err != nil {
		return report{}, err
	}

	started := time.Now()
	r := &runner{
		shop:    shop,
		catalog: catalog,
		cfg:     cfg,
		runID:   fmt.Sprintf("%x", started.UnixNano()),
		ledger:  newLedger(),
	}
	drive(ctx, cfg, r.run)

	return r.ledger.report(cfg, started, time.Since(started))
}

// saveReport пишет отчёт по абсолютному пути или внутрь текущего каталога.
func saveReport(path string, result report) error {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) && !filepath.IsLocal(clean) {
		return fmt.Errorf("output path escapes the working directory: %s", path)
	}
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return fmt.Errorf("output path is a directory: %s", path)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 -- отчёт нагрузочного прогона не содержит секретов.
	return os.WriteFile(clean, append(data, '\n'), 0o644)
}
