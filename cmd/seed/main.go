// Command seed provisions the bootstrap superadmin account. It goes through
// the same account service as the API so password hashing and validation
// rules stay in one place.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"rooflens.io/internal/auth"
	"rooflens.io/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", os.Getenv("ROOFLENS_PG_DSN"), "PostgreSQL DSN")
		email    = flag.String("email", "", "superadmin email")
		password = flag.String("password", os.Getenv("ROOFLENS_SEED_PASSWORD"), "superadmin password")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or ROOFLENS_PG_DSN")
	}
	if *email == "" || *password == "" {
		log.Fatal("usage: seed -email admin@example.com [-password ...]")
	}

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	svc, err := auth.NewService(store.Accounts())
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Bootstrap runs as an implicit superadmin; the guard inside Provision
	// then applies to everything created afterwards through the API.
	bootstrap := auth.Principal{
		SubjectID:       "bootstrap",
		Role:            auth.RoleSuperadmin,
		PermissionLevel: auth.LevelSuperadmin,
	}
	acct, err := svc.Provision(ctx, bootstrap, *email, *password, auth.RoleSuperadmin, auth.TenantScope{})
	if err != nil {
		log.Fatalf("provision superadmin: %v", err)
	}
	log.Printf("superadmin provisioned: id=%s email=%s", acct.ID, acct.Email)
}
