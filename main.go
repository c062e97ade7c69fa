package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/basisfi/flashlend/cmd"
	"github.com/basisfi/flashlend/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	utils.CleanupLogger()
	if err != nil {
		os.Exit(1)
	}
}
