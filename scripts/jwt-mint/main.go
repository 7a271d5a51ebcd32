// Command jwt-mint creates HS256 bearer tokens for local development
// against a server running with server.auth.bearer_enabled.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	var currentUser, err = user.Current()
	if err != nil {
		currentUser = &user.User{Username: "user-1"}
	}

	keyFile := flag.String("key-file", "", "Path to file containing the shared HS256 signing key")
	key := flag.String("key", "", "Shared HS256 signing key (prefer -key-file)")
	issuer := flag.String("issuer", "", "JWT issuer (optional)")
	audience := flag.String("audience", "", "JWT audience (comma-separated, optional)")
	subject := flag.String("subject", currentUser.Username, "JWT subject")
	expires := flag.Duration("expires", time.Hour, "Token lifetime (e.g. 1h)")
	flag.Parse()

	signingKey, err := resolveKey(*key, *keyFile)
	if err != nil {
		exitErr(err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": *subject,
		"iat": now.Unix(),
		"exp": now.Add(*expires).Unix(),
		"nbf": now.Add(-1 * time.Minute).Unix(),
	}
	if *issuer != "" {
		claims["iss"] = *issuer
	}
	if *audience != "" {
		claims["aud"] = splitList(*audience)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		exitErr(err)
	}

	fmt.Println(signed)
}

func resolveKey(key string, keyFile string) (string, error) {
	if key != "" {
		return key, nil
	}
	if keyFile == "" {
		return "", fmt.Errorf("either -key or -key-file is required")
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read signing key: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", fmt.Errorf("signing key file %q is empty", keyFile)
	}
	return trimmed, nil
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

func splitList(value string) []string {
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
