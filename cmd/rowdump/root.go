package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/spf13/cobra"

	"github.com/nlimpid/sqlstream/config"
	"github.com/nlimpid/sqlstream/mapping"
	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/stream"
	"github.com/nlimpid/sqlstream/transport/pgxrows"
	"github.com/nlimpid/sqlstream/transport/sqlrows"
	"github.com/nlimpid/sqlstream/txn"
)

var (
	ConfigPath string
	Driver     string
	DSN        string
	Policy     string
	Format     string
	Limit      int
)

var rootCmd = &cobra.Command{
	Use:   "rowdump [query]",
	Short: "Stream a query result row by row",
	Long: `rowdump runs a query and prints every row as it is read.

Drivers:
  - duckdb (default): in-memory unless --dsn names a database file
  - pgx: PostgreSQL, --dsn is a connection string

Examples:
  rowdump "SELECT 1 AS a, 'x' AS b"
  rowdump --format json "SELECT * FROM read_csv('data.csv')"
  rowdump --driver pgx --dsn postgres://localhost/app "SELECT * FROM users"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return Run(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&ConfigPath, "config", "c", "", "yaml config file")
	rootCmd.Flags().StringVar(&Driver, "driver", "", "database driver: duckdb or pgx")
	rootCmd.Flags().StringVar(&DSN, "dsn", "", "data source name")
	rootCmd.Flags().StringVar(&Policy, "policy", "", "duplicate column policy: first, last or error")
	rootCmd.Flags().StringVarP(&Format, "format", "f", "text", "output format: text or json")
	rootCmd.Flags().IntVarP(&Limit, "limit", "n", 0, "stop after n rows (0 for all)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if ConfigPath != "" {
		cfg, err = config.Load(ConfigPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("driver") {
		cfg.Database.Driver = Driver
	}
	if cmd.Flags().Changed("dsn") {
		cfg.Database.DSN = DSN
	}
	if cmd.Flags().Changed("policy") {
		cfg.Record.AmbiguousPolicy = Policy
		if _, err := cfg.Policy(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Run executes query with the configured driver and writes each row to w.
func Run(ctx context.Context, cfg *config.Config, query string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger(os.Stderr)

	session, cleanup, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tx := txn.Begin(session, txn.WithLogger(logger), txn.WithStreamOptions(cfg.StreamOptions(logger)...))
	s, err := txn.Query(ctx, tx, mapping.Default(), query)
	if err != nil {
		return err
	}
	s.AddListener(stream.LogListener[*record.Entity](logger))

	err = dump(ctx, s, w)
	if cerr := tx.Commit(ctx); err == nil {
		err = cerr
	}
	return err
}

func openSession(ctx context.Context, cfg *config.Config) (txn.Session, func(), error) {
	switch cfg.Database.Driver {
	case "duckdb":
		db, err := sql.Open("duckdb", cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open duckdb: %w", err)
		}
		return sqlrows.NewSession(db), func() { db.Close() }, nil
	case "pgx":
		conn, err := pgx.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pgxrows.NewSession(conn), func() { conn.Close(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", cfg.Database.Driver)
}

func dump(ctx context.Context, s *stream.Stream[*record.Entity], w io.Writer) error {
	enc := json.NewEncoder(w)
	n := 0
	for e, err := range s.All(ctx) {
		if err != nil {
			return err
		}
		switch Format {
		case "json":
			if err := enc.Encode(e.Map()); err != nil {
				return err
			}
		default:
			fmt.Fprintln(w, e.String())
		}
		n++
		if Limit > 0 && n >= Limit {
			break
		}
	}
	return nil
}
