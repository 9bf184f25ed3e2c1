package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/vattention/facio-superpowers/costs/cmd"
	"github.com/vattention/facio-superpowers/internal/console"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.NewRootCmd().ExecuteContext(ctx); err != nil {
		console.New(os.Stderr).Error(fmt.Sprintf("❌ Error: %v", err))
		stop()
		os.Exit(1)
	}
}
