package main

import (
	"context"
	"os"

	"github.com/psantana5/evprof/cmd/evprof/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
