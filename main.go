package main

import (
	"os"

	"go.universe.tf/iris/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
