package main

import (
	"context"
	"fmt"
	"os"

	"github.com/locktalk/locktalk/internal/client/cli"
)

func main() {

	ctx := context.Background()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := cli.NewApp(cfg, os.Stdin, os.Stdout)
	if err := app.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

}
