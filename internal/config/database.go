package config

import (
	"fmt"
	"strings"
)

// DSN returns a MySQL-compatible data source name.
// If ConnectionString is set, it is used directly; otherwise the DSN is
// built from the discrete fields. parseTime and a UTC location are always
// forced so DATETIME columns scan into time.Time consistently.
func (d *DatabaseConfig) DSN() string {
	var dsn string

	if d.ConnectionString != "" {
		dsn = d.ConnectionString
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		if !strings.Contains(dsn, "loc=") {
			dsn += "&loc=UTC"
		}
		return dsn
	}

	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

// EffectiveDatabaseName returns the database the server will operate on,
// from the discrete field or parsed out of the DSN.
func (d *DatabaseConfig) EffectiveDatabaseName() (string, error) {
	configDatabase := strings.TrimSpace(d.Database)
	dsnDatabase, err := parseDSNDatabaseName(strings.TrimSpace(d.ConnectionString))
	if err != nil {
		return "", err
	}

	if configDatabase != "" {
		if dsnDatabase != "" && configDatabase != dsnDatabase {
			return "", fmt.Errorf(
				"database mismatch: database.database=%q but database.dsn targets %q",
				configDatabase,
				dsnDatabase,
			)
		}
		return configDatabase, nil
	}
	if dsnDatabase != "" {
		return dsnDatabase, nil
	}
	return "", fmt.Errorf("no database configured: set database.database or include one in database.dsn")
}

// parseDSNDatabaseName extracts the database segment of a MySQL DSN:
// user:password@tcp(host:port)/database?params
func parseDSNDatabaseName(dsn string) (string, error) {
	if dsn == "" {
		return "", nil
	}
	slash := strings.LastIndex(dsn, "/")
	if slash == -1 {
		return "", fmt.Errorf("invalid DSN %q: missing database separator", redactDSN(dsn))
	}
	name := dsn[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	return strings.TrimSpace(name), nil
}

// redactDSN hides the credential portion of a DSN for error messages.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at == -1 {
		return dsn
	}
	return "***" + dsn[at:]
}
