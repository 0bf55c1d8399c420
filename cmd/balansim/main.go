package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata" // LEDGER_TIMEZONE must resolve on hosts without zoneinfo

	"balansim/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
