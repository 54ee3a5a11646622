// migrate applies the embedded SQL schema; run with -direction=up or down.
package main

import (
	"flag"
	"fmt"
	"os"

	"presence/internal/config"
	"presence/internal/store"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg := config.Load()
	if err := store.Migrate(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
