// Command devtoken prints a bearer token for an owner, signed with the
// configured JWT_SECRET. Production tokens come from the login service.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pdv/internal/auth"
	"pdv/internal/config"
)

func main() {
	owner := flag.String("owner", "", "owner id to put in the token subject")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if strings.TrimSpace(*owner) == "" {
		fmt.Fprintln(os.Stderr, "--owner is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.IssueToken(cfg.JWTSecret, strings.TrimSpace(*owner), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
