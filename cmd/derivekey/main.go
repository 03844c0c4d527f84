// Command derivekey exchanges an L1 wallet key for L2 API credentials.
// The private key comes from PRIVATE_KEY or the -key flag; the resulting
// credentials are printed to stdout as shell exports, never logged.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/marketmole/polymarket-data/client"
	"github.com/marketmole/polymarket-data/utils/logging"
)

func main() {
	keyFlag := flag.String("key", "", "L1 private key hex (default: PRIVATE_KEY env)")
	flag.Parse()

	logger := logging.NewComponent("derivekey")
	_ = godotenv.Load()

	privateKey := *keyFlag
	if privateKey == "" {
		privateKey = os.Getenv("PRIVATE_KEY")
	}
	if privateKey == "" {
		logger.Error("no private key: pass -key or set PRIVATE_KEY")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(client.WithLogger(logger))
	creds, err := c.DeriveCredentials(ctx, privateKey)
	if err != nil {
		logger.Error("derive credentials", "error", err)
		os.Exit(1)
	}

	fmt.Printf("export POLY_ADDRESS=%s\n", creds.Address)
	fmt.Printf("export POLY_API_KEY=%s\n", creds.APIKey)
	fmt.Printf("export POLY_API_SECRET=%s\n", creds.APISecret)
	fmt.Printf("export POLY_API_PASSPHRASE=%s\n", creds.Passphrase)
}
