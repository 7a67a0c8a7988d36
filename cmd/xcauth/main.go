package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/xcauth/internal/app"
	"github.com/dmitrijs2005/xcauth/internal/buildinfo"
	"github.com/dmitrijs2005/xcauth/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if cfg.ShowVersion {
		buildinfo.PrintBuildData(os.Stdout)
		return 0
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx := context.Background()
	a, err := app.NewApp(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close(ctx)

	if err := a.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
