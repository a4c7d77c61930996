// Command mint-token prints a signed access token for local testing and for
// operators calling the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "mint-token", Format: "console", Output: os.Stderr})
	_ = godotenv.Load()

	role := flag.String("role", "admin", "token role: admin|seller")
	sellerID := flag.Int64("seller", 0, "seller id (required for seller tokens)")
	subject := flag.String("sub", "", "subject claim; defaults to role:seller")
	flag.Parse()

	// Only the JWT block is needed, so the rest of the service config may be absent.
	var jwtCfg config.JWTConfig
	if err := envconfig.Process(config.EnvPrefix, &jwtCfg); err != nil {
		logg.Error(context.Background(), "failed to load jwt config", err)
		os.Exit(1)
	}

	token, err := mint(jwtCfg, time.Now().UTC(), *role, *sellerID, *subject)
	if err != nil {
		logg.Error(context.Background(), "failed to mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
