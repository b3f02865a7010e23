// Command shop is a terminal storefront for the Catalog Store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xenking/storefront/cmd/shop/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRoot().ExecuteContext(ctx); err != nil {
		stop()
		_, _ = fmt.Fprintf(os.Stderr, "shop: %v\n", err)
		os.Exit(1)
	}
}
