package config

import (
	"strings"

	"github.com/namsral/flag"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DBDriver   string
	DBConnUri  string
	SQLitePath string
	DBMigrate  bool

	ListenAddr string
	SecretKey  string
	JWTIssuers []string

	DefaultDueLimit        int
	DifficultEaseThreshold float64
	DifficultRepsThreshold int

	LogLevel string
}

// Load loads the configs from the given arguments. Every flag can also be
// given as an upper-cased environment variable (DB_CONN_URI, SECRET_KEY...).
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("flashcards", flag.ContinueOnError)

	fs.StringVar(&c.DBDriver, "db-driver", DriverPostgres, "database backend: postgres or sqlite")
	fs.StringVar(&c.DBConnUri, "db-conn-uri", "", "postgres connection URI")
	fs.StringVar(&c.SQLitePath, "sqlite-path", "flashcards.db", "sqlite database file, for the sqlite driver")
	fs.BoolVar(&c.DBMigrate, "db-migrate", false, "migrate the database schema on startup")

	fs.StringVar(&c.ListenAddr, "listen-addr", ":8180", "address the server listens on")
	fs.StringVar(&c.SecretKey, "secret-key", "", "HMAC key used to verify JWTs")
	var issuers string
	fs.StringVar(&issuers, "jwt-issuers", "aerolith.org,aerolith.localhost", "comma-separated list of accepted JWT issuers")

	fs.IntVar(&c.DefaultDueLimit, "default-due-limit", 20, "number of due cards returned when the request does not say")
	fs.Float64Var(&c.DifficultEaseThreshold, "difficult-ease-threshold", 1.8, "cards below this ease factor may be difficult")
	fs.IntVar(&c.DifficultRepsThreshold, "difficult-reps-threshold", 2, "difficult cards have more repetitions than this")

	fs.StringVar(&c.LogLevel, "log-level", "info", "log level")
	err := fs.Parse(args)
	if err != nil {
		return err
	}
	c.JWTIssuers = nil
	for _, iss := range strings.Split(issuers, ",") {
		if iss = strings.TrimSpace(iss); iss != "" {
			c.JWTIssuers = append(c.JWTIssuers, iss)
		}
	}
	return nil
}
