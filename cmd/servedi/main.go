package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"git.sr.ht/~jakintosh/servedi/internal/api"
	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/keys"
	"git.sr.ht/~jakintosh/servedi/internal/service"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
)

func main() {
	dbPath := readEnvVar("DB_PATH")
	keysPath := readEnvVar("KEYS_PATH")
	issuer := readEnvVar("ISSUER")
	port := fmt.Sprintf(":%s", readEnvVar("PORT"))
	production := os.Getenv("ENV") == "production"

	ring, err := keys.Load(keysPath)
	if err != nil {
		log.Fatalf("failed to load signing secrets: %v\n", err)
	}
	if err := ring.Watch(); err != nil {
		log.Fatalf("failed to start key watcher: %v\n", err)
	}

	codec, err := tokens.NewCodec(tokens.Config{
		Secrets: ring,
		Issuer:  issuer,
	})
	if err != nil {
		log.Fatalf("failed to create token codec: %v\n", err)
	}

	db := directory.NewSQLiteStore(dbPath)
	defer db.Close()

	svc := service.New(db, db, codec, 0)
	a := api.New(svc, production)

	log.Printf("servedi listening on %s\n", port)
	log.Fatal(http.ListenAndServe(port, a.Router()))
}

func readEnvVar(name string) string {
	str, present := os.LookupEnv(name)
	if !present {
		log.Fatalf("missing required env var '%s'\n", name)
	}
	return str
}
