// Command token signs a development credential with the gateway secret.
package main

import (
	"chat-gateway/auth"
	"chat-gateway/domain"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	user := flag.String("user", "", "User id carried by the token")
	role := flag.String("role", "user", "Role claim")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = auth.DefaultIssuer
	}
	if *user == "" {
		log.Fatal("missing -user")
	}

	token, err := auth.NewIssuer([]byte(secret), issuer).Issue(domain.UserID(*user), *role, *ttl)
	if err != nil {
		log.Fatalf("signing token: %v", err)
	}
	fmt.Println(token)
}
