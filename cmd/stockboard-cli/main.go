package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"stockboard/internal/app"
	"stockboard/internal/auth"
	"stockboard/internal/chart"
	"stockboard/internal/dashboard"
	"stockboard/internal/stocks"
	"stockboard/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: stockboard-cli [-config path] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version                  Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  login EMAIL PASSWORD     Sign in and store the session\n")
	fmt.Fprintf(os.Stderr, "  signup NAME EMAIL PASS   Create an account and store the session\n")
	fmt.Fprintf(os.Stderr, "  logout                   Clear the stored session\n")
	fmt.Fprintf(os.Stderr, "  whoami                   Show the signed-in user\n")
	fmt.Fprintf(os.Stderr, "  symbols                  List available symbols\n")
	fmt.Fprintf(os.Stderr, "  history SYMBOL [RANGE]   Print a symbol's points (RANGE: 1D 1W 1M 3M 1Y)\n")
	fmt.Fprintf(os.Stderr, "  export SYMBOL [RANGE]    Write Parquet and PNG exports\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	flag.Usage = usage
	configPath := flag.String("config", app.DefaultConfigPath, "path to YAML config")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if args[0] == "version" {
		fmt.Printf("stockboard-cli %s\n", version)
		return
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", describe(err))
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login EMAIL PASSWORD")
		}
		user, err := a.SignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)

	case "signup":
		if len(args) != 3 {
			return errors.New("usage: signup NAME EMAIL PASSWORD")
		}
		user, err := a.SignUp(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("account created for %s <%s>\n", user.Name, user.Email)

	case "logout":
		if err := a.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")

	case "whoami":
		if !a.Session.IsAuthenticated() {
			fmt.Println("not signed in")
			return nil
		}
		u := a.Session.Identity()
		fmt.Printf("%s <%s> (id %s)\n", u.Name, u.Email, u.ID)

	case "symbols":
		labels, err := a.Stocks.AvailableSymbols(ctx)
		if err != nil {
			return err
		}
		syms := make([]string, 0, len(labels))
		for s := range labels {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		for _, s := range syms {
			fmt.Println(labels[s])
		}

	case "history", "export":
		symbol, rng, err := parseSelection(a, args)
		if err != nil {
			return err
		}
		now := time.Now()
		points, err := a.ViewWithRetry(ctx, symbol, rng, now, 3)
		if err != nil {
			return err
		}
		if cmd == "history" {
			printHistory(symbol, rng, points)
			return nil
		}
		exp, err := a.ExportView(symbol, rng, points, now)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d points\n  %s\n  %s\n", exp.Points, exp.ParquetPath, exp.PNGPath)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func parseSelection(a *app.App, args []string) (string, dashboard.Range, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", "", errors.New("usage: history|export SYMBOL [RANGE]")
	}
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	raw := a.Config.Dashboard.DefaultRange
	if len(args) == 2 {
		raw = args[1]
	}
	rng, err := dashboard.ParseRange(raw)
	if err != nil {
		return "", "", err
	}
	return symbol, rng, nil
}

func printHistory(symbol string, rng dashboard.Range, points []dashboard.Point) {
	if len(points) == 0 {
		fmt.Printf("no data for %s in the last %s\n", symbol, rng)
		return
	}
	fmt.Printf("%s %s  %s\n\n", symbol, rng, chart.Sparkline(points, 60))
	fmt.Printf("%-12s %10s %10s %10s %10s %14s\n", "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
	for _, p := range points {
		fmt.Printf("%-12s %10s %10s %10s %10s %14s\n",
			p.Date, dashboard.FormatPrice(p.Open), dashboard.FormatPrice(p.High),
			dashboard.FormatPrice(p.Low), dashboard.FormatPrice(p.Close), dashboard.FormatInt(p.Volume))
	}

	s := dashboard.Summarize(points)
	fmt.Printf("\n%d points  change %s  high %s  low %s  avg %s  volume %s\n",
		s.Count, dashboard.FormatChange(s.ChangePct), dashboard.FormatPrice(s.High),
		dashboard.FormatPrice(s.Low), dashboard.FormatPrice(s.AvgClose), dashboard.FormatVolume(s.TotalVolume))
}

// describe turns typed errors into the message shown to the user.
func describe(err error) string {
	var ae *auth.AuthenticationError
	if errors.As(err, &ae) {
		return ae.Message
	}
	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var de *stocks.DataFetchError
	if errors.As(err, &de) {
		return fmt.Sprintf("%s: %v", stocks.FetchFailedMessage, de.Err)
	}
	return "error: " + err.Error()
}
