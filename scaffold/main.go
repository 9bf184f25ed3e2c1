package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/scaffold/cmd"
	"github.com/vattention/facio-superpowers/scaffold/internal/installer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.NewRootCmd().ExecuteContext(ctx); err != nil {
		// guidance has already been printed
		if !errors.Is(err, installer.ErrProjectDocMissing) {
			console.New(os.Stderr).Error(fmt.Sprintf("\n❌ Error: %v", err))
		}
		stop()
		os.Exit(1)
	}
}
