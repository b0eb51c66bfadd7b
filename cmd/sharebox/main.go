package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/sharebox/internal/cli/app"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is optional.
	_ = godotenv.Load()

	global := pflag.NewFlagSet("sharebox", pflag.ContinueOnError)
	global.SetInterspersed(false)
	app.GlobalFlags(global)
	if err := global.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := app.LoadConfig(viper.New(), global)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sharebox: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := app.New(cfg, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sharebox: %v\n", err)
		return 1
	}
	defer cli.Close()

	if err := cli.Run(ctx, global.Args()); err != nil {
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprintf(os.Stderr, "sharebox: %v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "sharebox: %v\n", err)
		if hint := app.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		return 1
	}
	return 0
}
