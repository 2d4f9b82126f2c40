// Command token mints a bearer token signed with the configured auth secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/courselibrary/backend/internal/infrastructure/auth"
	"github.com/courselibrary/backend/internal/infrastructure/config"
)

func main() {
	var (
		subject string
		scopes  string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "subject", "", "Token subject (required)")
	flag.StringVar(&scopes, "scopes", auth.ScopeRead+","+auth.ScopeWrite, "Comma separated scopes to grant")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default: auth.token_expiration)")
	flag.Parse()

	if strings.TrimSpace(subject) == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if ttl > 0 {
		cfg.Auth.TokenExpiration = ttl
	}

	token, expiresAt, err := auth.NewJWTService(cfg.Auth).Generate(subject, splitScopes(scopes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
