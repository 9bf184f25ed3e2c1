package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/server/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewRootCmd().ExecuteContext(ctx); err != nil {
		console.New(os.Stderr).Error(fmt.Sprintf("❌ Error: %v", err))
		stop()
		os.Exit(1)
	}
}
