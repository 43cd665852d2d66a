package helpers

import (
	"database/sql"
	"fmt"

	"github.com/golang/glog"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE PostgreSQL raises when a unique index would
// be violated
const uniqueViolation = "23505"

// DBConfig stores the connection information used by InitDBConnection to
// establish a connection to the database
type DBConfig struct {
	Host     string
	Port     int64
	Database string
	Username string
	Password string
	SSLMode  string
}

// OpenDB opens and pings a connection pool
func OpenDB(c DBConfig) (*sql.DB, error) {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	db, err := sql.Open(
		"postgres",
		fmt.Sprintf(
			"user=%s dbname=%s host=%s port=%d password=%s sslmode=%s",
			c.Username,
			c.Database,
			c.Host,
			c.Port,
			c.Password,
			sslMode,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %v", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	// PostgreSQL max is 100, we need to be below that limit as there may be
	// connections from monitoring apps, migrations in process or active
	// debugging
	db.SetMaxOpenConns(90)

	return db, nil
}

// InitDBConnection will establish the connection to the database or die trying
func InitDBConnection(c DBConfig) *sql.DB {
	db, err := OpenDB(c)
	if err != nil {
		glog.Fatal(err)
	}

	return db
}

// GetTransaction will begin and then return a transaction on db
func GetTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("could not start a transaction: %v", err)
	}

	return tx, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation
func IsUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}
