// Command splitctl is the operator CLI: provision users, mint development
// tokens and export balance sheets straight from the store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/josh-kwaku/splitledger/internal/auth"
	"github.com/josh-kwaku/splitledger/internal/config"
	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/export"
	"github.com/josh-kwaku/splitledger/internal/logging"
	"github.com/josh-kwaku/splitledger/internal/service"
	"github.com/josh-kwaku/splitledger/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdout)
	if err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix("SPLITLEDGER")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type storeFlags struct {
	backend     *string
	databaseURL *string
	boltPath    *string
	migrate     *bool
	logLevel    *string
}

func (f storeFlags) open(ctx context.Context) (*store.Stores, error) {
	if _, err := logging.Setup(logging.Options{Level: *f.logLevel, Env: "development", Output: os.Stderr}); err != nil {
		return nil, err
	}
	return store.Open(ctx, store.Options{
		Backend:     *f.backend,
		DatabaseURL: *f.databaseURL,
		BoltPath:    *f.boltPath,
		AutoMigrate: *f.migrate,
		Pool:        store.CLIPool,
	})
}

func newRootCommand(stdout io.Writer) *ff.Command {
	rootFlags := ff.NewFlagSet("splitctl")
	sf := storeFlags{
		backend:     rootFlags.StringLong("store-backend", config.BackendPostgres, "store backend: 'postgres' or 'bolt'"),
		databaseURL: rootFlags.StringLong("database-url", "", "Postgres connection string"),
		boltPath:    rootFlags.StringLong("bolt-path", "splitledger.db", "bbolt database file"),
		migrate:     rootFlags.BoolLong("migrate", "apply pending Postgres migrations first"),
		logLevel:    rootFlags.StringLong("log-level", "warn", "debug, info, warn or error"),
	}

	userAddFlags := ff.NewFlagSet("user-add").SetParent(rootFlags)
	username := userAddFlags.StringLong("username", "", "username (required)")
	email := userAddFlags.StringLong("email", "", "email address (required)")
	userAdd := &ff.Command{
		Name:      "user-add",
		Usage:     "splitctl user-add --username NAME --email ADDR",
		ShortHelp: "register a user who can take part in expenses",
		Flags:     userAddFlags,
		Exec: func(ctx context.Context, _ []string) error {
			stores, err := sf.open(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()
			return runUserAdd(ctx, stores.Users, *username, *email, stdout)
		},
	}

	tokenFlags := ff.NewFlagSet("token").SetParent(rootFlags)
	tokenUser := tokenFlags.StringLong("user", "", "username or user id (required)")
	secret := tokenFlags.StringLong("jwt-secret", "", "HMAC secret shared with the API (required)")
	ttl := tokenFlags.StringLong("ttl", "24h", "token lifetime")
	token := &ff.Command{
		Name:      "token",
		Usage:     "splitctl token --user NAME --jwt-secret SECRET [--ttl 24h]",
		ShortHelp: "mint a bearer token for local development",
		Flags:     tokenFlags,
		Exec: func(ctx context.Context, _ []string) error {
			lifetime, err := time.ParseDuration(*ttl)
			if err != nil {
				return fmt.Errorf("invalid --ttl: %w", err)
			}
			stores, err := sf.open(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()
			return runToken(ctx, stores.Users, *tokenUser, *secret, lifetime, stdout)
		},
	}

	exportFlags := ff.NewFlagSet("export").SetParent(rootFlags)
	users := exportFlags.StringLong("users", "", "comma-separated usernames or ids (required)")
	currency := exportFlags.StringLong("currency", string(domain.CurrencyUSD), "currency to report in")
	out := exportFlags.StringLong("out", "", "output file (default stdout)")
	exportCmd := &ff.Command{
		Name:      "export",
		Usage:     "splitctl export --users alice,bob [--currency USD] [--out balances.csv]",
		ShortHelp: "write a balances CSV for the given users",
		Flags:     exportFlags,
		Exec: func(ctx context.Context, _ []string) error {
			stores, err := sf.open(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()

			w := stdout
			if *out != "" {
				f, err := os.Create(*out)
				if err != nil {
					return fmt.Errorf("create %s: %w", *out, err)
				}
				defer f.Close()
				w = f
			}
			return runExport(ctx, stores, splitList(*users), domain.Currency(strings.ToUpper(*currency)), w)
		},
	}

	return &ff.Command{
		Name:        "splitctl",
		Usage:       "splitctl [FLAGS] <SUBCOMMAND> ...",
		ShortHelp:   "operate a splitledger store",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{userAdd, token, exportCmd},
		Exec: func(context.Context, []string) error {
			return ff.ErrHelp
		},
	}
}

func runUserAdd(ctx context.Context, users store.UserStore, username, email string, w io.Writer) error {
	u, err := service.NewUserService(users).Register(ctx, username, email)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Username, u.Email)
	return err
}

func runToken(ctx context.Context, users store.UserStore, ref, secret string, ttl time.Duration, w io.Writer) error {
	if secret == "" {
		return errors.New("--jwt-secret is required")
	}
	u, err := lookupUser(ctx, users, ref)
	if err != nil {
		return err
	}
	signed, err := auth.IssueToken(auth.Claims{UserID: u.ID, Username: u.Username}, secret, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, signed)
	return err
}

func runExport(ctx context.Context, stores *store.Stores, refs []string, currency domain.Currency, w io.Writer) error {
	if len(refs) == 0 {
		return errors.New("--users is required")
	}
	if !currency.IsValid() {
		return fmt.Errorf("unsupported currency %q", currency)
	}

	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		u, err := lookupUser(ctx, stores.Users, ref)
		if err != nil {
			return err
		}
		ids = append(ids, u.ID)
	}

	entries, err := service.NewBalanceService(stores.Expenses, stores.Users).Balances(ctx, ids, currency)
	if err != nil {
		return err
	}
	body, err := export.BalancesCSV(entries)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// lookupUser accepts either a user id or a username.
func lookupUser(ctx context.Context, users store.UserStore, ref string) (*domain.User, error) {
	if ref == "" {
		return nil, errors.New("a user is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		u, err := users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", ref, err)
		}
		return u, nil
	}
	u, err := users.GetByUsername(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", ref, err)
	}
	return u, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
