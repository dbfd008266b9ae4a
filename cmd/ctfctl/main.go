// cmd/ctfctl/main.go
package main

import (
	"context"
	"os"
	"os/signal"

	"ctf-portal/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, &cli.Env{}, os.Stderr)
	stop()
	os.Exit(code)
}
