// Command operator-token mints a bearer token for calling the public API.
// It signs with JWT_SECRET, so it must run where that secret is available.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	sharedconfig "github.com/eaglebank/corebank/shared/config"
	"github.com/eaglebank/corebank/shared/middleware"
)

func main() {
	sharedconfig.LoadDotEnv()

	operator := flag.String("operator", "", "operator id placed in the token")
	role := flag.String("role", "teller", "operator role")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	middleware.MustInitJWTSecret()
	token, err := middleware.IssueToken(*operator, *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "operator-token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
