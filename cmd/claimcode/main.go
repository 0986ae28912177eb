// Command claimcode prints the code the owner of a memberless account, such
// as one migrated from the legacy layout, must send to register it.
//
//	claimcode ACCOUNT_ID...
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/SEBSEB62/KAYE-sub000/internal/config"
	"github.com/SEBSEB62/KAYE-sub000/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := printCodes(os.Stdout, cfg.ClaimSecret, os.Args[1:]); err != nil {
		slog.Error("cannot issue claim codes", "error", err)
		os.Exit(1)
	}
}

func printCodes(w io.Writer, secret string, accounts []string) error {
	if secret == "" {
		return errors.New("LEGACY_CLAIM_SECRET is not set")
	}
	if len(accounts) == 0 {
		return errors.New("usage: claimcode ACCOUNT_ID...")
	}
	for _, account := range accounts {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", account, service.ClaimCode(secret, account)); err != nil {
			return err
		}
	}
	return nil
}
