// Command mktoken mints a development JWT for a given user, useful for
// exercising the API and socket endpoint without going through register
// or login.
//
// Usage:
//
//	mktoken -user 6e1a... -email dev@example.com [-secret s] [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/devroom-hq/devroom/internal/token"
)

func main() {
	userFlag := flag.String("user", "", "user id (uuid, required)")
	emailFlag := flag.String("email", "dev@example.com", "user email embedded in the claims")
	secretFlag := flag.String("secret", "", "signing secret (defaults to $JWT_SECRET, then the dev secret)")
	ttlFlag := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userFlag == "" {
		fmt.Fprintln(os.Stderr, "mktoken: -user is required")
		flag.Usage()
		os.Exit(2)
	}

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mktoken: invalid user id: %v\n", err)
		os.Exit(2)
	}

	secret := *secretFlag
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		secret = "devroom-dev-secret"
	}

	mgr := token.NewManager(secret, *ttlFlag)
	tok, err := mgr.Issue(userID, *emailFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mktoken: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tok)
}
