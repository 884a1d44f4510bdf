// servedi-testserver runs a self-contained auth server for integration
// testing: temp database, generated signing secrets, pre-seeded accounts.
// It prints a JSON contract on stdout so harnesses can discover the base
// URL and credentials, then serves until interrupted.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"git.sr.ht/~jakintosh/servedi/internal/api"
	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/keys"
	"git.sr.ht/~jakintosh/servedi/internal/service"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
	"golang.org/x/crypto/bcrypt"
)

type config struct {
	ListenAddr string
	Issuer     string
	DataDir    string
	Keep       bool
	Quiet      bool
	Users      []seedUser
}

type seedUser struct {
	Email    string
	Password string
	Role     string
}

// outputContract is the JSON structure emitted on stdout
type outputContract struct {
	BaseURL string       `json:"base_url"`
	Issuer  string       `json:"issuer"`
	DataDir string       `json:"data_dir"`
	DBPath  string       `json:"db_path"`
	KeyPath string       `json:"key_path"`
	Users   []outputUser `json:"users"`
}

type outputUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func main() {
	cfg := parseFlags()

	if cfg.Quiet {
		log.SetOutput(os.Stderr)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = os.MkdirTemp("", "servedi-testserver-*")
		if err != nil {
			log.Fatalf("failed to create data dir: %v\n", err)
		}
	}
	if !cfg.Keep {
		defer os.RemoveAll(dataDir)
	}

	keyPath := filepath.Join(dataDir, "keys.json")
	if err := keys.WriteFile(keyPath, randomSecret(), randomSecret()); err != nil {
		log.Fatalf("failed to write key file: %v\n", err)
	}
	ring, err := keys.Load(keyPath)
	if err != nil {
		log.Fatalf("failed to load signing secrets: %v\n", err)
	}

	codec, err := tokens.NewCodec(tokens.Config{
		Secrets: ring,
		Issuer:  cfg.Issuer,
	})
	if err != nil {
		log.Fatalf("failed to create token codec: %v\n", err)
	}

	dbPath := filepath.Join(dataDir, "servedi.db")
	db := directory.NewSQLiteStore(dbPath)
	defer db.Close()

	svc := service.New(db, db, codec, bcrypt.MinCost)
	seedUsers(svc, cfg.Users)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v\n", cfg.ListenAddr, err)
	}

	contract := outputContract{
		BaseURL: fmt.Sprintf("http://%s", listener.Addr()),
		Issuer:  cfg.Issuer,
		DataDir: dataDir,
		DBPath:  dbPath,
		KeyPath: keyPath,
	}
	for _, u := range cfg.Users {
		contract.Users = append(contract.Users, outputUser(u))
	}
	if err := json.NewEncoder(os.Stdout).Encode(&contract); err != nil {
		log.Fatalf("failed to emit contract: %v\n", err)
	}

	server := &http.Server{Handler: api.New(svc, false).Router()}
	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			log.Fatalf("server error: %v\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	_ = server.Shutdown(context.Background())
}

func parseFlags() config {
	cfg := config{}
	var users userFlags

	flag.StringVar(&cfg.ListenAddr, "listen", "127.0.0.1:0", "listen address")
	flag.StringVar(&cfg.Issuer, "issuer", "test.servedi.local", "token issuer")
	flag.StringVar(&cfg.DataDir, "data-dir", "", "data directory (temp dir when empty)")
	flag.BoolVar(&cfg.Keep, "keep", false, "keep the data directory on exit")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "suppress request logging on stdout")
	flag.Var(&users, "user", "seed account as email:password[:role], repeatable")
	flag.Parse()

	cfg.Users = users
	return cfg
}

type userFlags []seedUser

func (f *userFlags) String() string { return fmt.Sprintf("%d users", len(*f)) }

func (f *userFlags) Set(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("expected email:password[:role], got '%s'", value)
	}
	user := seedUser{Email: parts[0], Password: parts[1], Role: string(directory.RoleClient)}
	if len(parts) == 3 {
		user.Role = parts[2]
	}
	*f = append(*f, user)
	return nil
}

func seedUsers(svc *service.Service, users []seedUser) {
	for _, u := range users {
		input := service.RegisterInput{
			Email:     u.Email,
			Password:  u.Password,
			Role:      u.Role,
			FirstName: "Seed",
			LastName:  "User",
		}
		if u.Role == string(directory.RoleProvider) {
			input.BusinessName = "Seed Business"
		}
		if _, _, err := svc.Register(context.Background(), input); err != nil {
			log.Fatalf("failed to seed user '%s': %v\n", u.Email, err)
		}
	}
}

func randomSecret() []byte {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("failed to generate secret: %v\n", err)
	}
	return secret
}
