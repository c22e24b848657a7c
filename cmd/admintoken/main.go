// Command admintoken prints a bearer token for the registration management
// API, signed with ADMIN_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/config"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/jwt"
)

func main() {
	subject := flag.String("sub", "admin", "token subject")
	ttl := flag.String("ttl", "", "token lifetime, defaults to ADMIN_TOKEN_TTL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	if cfg.Admin.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is not set")
		os.Exit(1)
	}

	expiration := cfg.Admin.TokenTTL
	if *ttl != "" {
		expiration = *ttl
	}

	token, expiresAt, err := jwt.NewJWTService(cfg.Admin.JWTSecret, expiration).GenerateAdminToken(*subject)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error generating token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "expires", time.Unix(expiresAt, 0).Format(time.RFC3339))
}
