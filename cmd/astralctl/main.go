// Command astralctl drives the developer endpoints of a running engine:
// fast ticks, resets, stat scaling, task firing, grants and confinement.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/talgya/astral-district/internal/config"
	"github.com/talgya/astral-district/internal/devclient"
	"github.com/talgya/astral-district/internal/logging"
)

type ctlConfig struct {
	APIURL   string        `env:"ASTRAL_API_URL" envDefault:"http://localhost:8080"`
	AdminKey string        `env:"ASTRAL_ADMIN_KEY"`
	Wait     time.Duration `env:"ASTRAL_CTL_WAIT" envDefault:"0s"`
}

const usage = `usage: astralctl <command> [args]

commands:
  status                    show engine status
  fast on|off               toggle fast ticks
  reset                     delete the character and its save
  scale <multiplier>        scale stats and resources
  run-task <name>           fire one scheduler task now
  grant [flags]             credit money, experience, vitals or items
  confine jail|hospital <minutes>
`

func main() {
	var cfg ctlConfig
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stderr, "text", "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	client := devclient.New(cfg.APIURL, cfg.AdminKey)
	ctx := context.Background()

	if cfg.Wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, cfg.Wait)
		err := client.WaitReady(waitCtx)
		cancel()
		if err != nil {
			slog.Error("engine unreachable", "api_url", cfg.APIURL, "error", err)
			os.Exit(1)
		}
	}

	if err := run(ctx, client, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, devclient.ErrRefused) {
			slog.Warn("engine refused the request", "command", os.Args[1])
			os.Exit(3)
		}
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *devclient.Client, cmd string, args []string) error {
	switch cmd {
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: active=%t busy=%t fast_ticks=%t dev=%t\n", st.Name, st.Active, st.Busy, st.FastTicks, st.Dev)
		if !st.LastHealthTick.IsZero() {
			fmt.Printf("last health tick: %s\n", st.LastHealthTick.Format(time.RFC3339))
		}
		for _, task := range st.Tasks {
			last := "never"
			if !task.LastRun.IsZero() {
				last = task.LastRun.Format(time.RFC3339)
			}
			fmt.Printf("  %-20s running=%-5t last=%s\n", task.Name, task.Running, last)
		}
		return nil

	case "fast":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return fmt.Errorf("fast takes on or off")
		}
		on, err := c.SetFastTicks(ctx, args[0] == "on")
		if err != nil {
			return err
		}
		fmt.Printf("fast ticks: %t\n", on)
		return nil

	case "reset":
		if err := c.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("character deleted")
		return nil

	case "scale":
		if len(args) != 1 {
			return fmt.Errorf("scale takes one multiplier")
		}
		mult, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("parse multiplier: %w", err)
		}
		return c.Scale(ctx, mult)

	case "run-task":
		if len(args) != 1 {
			return fmt.Errorf("run-task takes one task name")
		}
		return c.RunTask(ctx, args[0])

	case "grant":
		fs := flag.NewFlagSet("grant", flag.ContinueOnError)
		var g devclient.Grant
		fs.IntVar(&g.Money, "money", 0, "money to add")
		fs.IntVar(&g.Experience, "xp", 0, "experience to add")
		fs.IntVar(&g.Energy, "energy", 0, "energy to restore")
		fs.IntVar(&g.Health, "health", 0, "health to restore")
		fs.IntVar(&g.HeartRate, "heart-rate", 0, "heart rate increase")
		fs.IntVar(&g.Heat, "heat", 0, "heat increase")
		fs.StringVar(&g.Item, "item", "", "catalog item id")
		fs.IntVar(&g.Quantity, "qty", 1, "item quantity")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return c.Grant(ctx, g)

	case "confine":
		if len(args) != 2 {
			return fmt.Errorf("confine takes a kind and minutes")
		}
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("parse minutes: %w", err)
		}
		return c.Confine(ctx, args[0], minutes)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
