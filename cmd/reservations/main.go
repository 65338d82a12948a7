package main

import (
	"context"
	"os"

	"github.com/cimillas/item-reservations/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
