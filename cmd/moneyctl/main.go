package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"moneymanager/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewApp(os.Stdout, nil).Execute(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
