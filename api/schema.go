package api

import (
	"context"
	"database/sql"
	"fmt"
)

//Supported SQL drivers
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

var userTable = map[string]string{
	DriverMySQL: `CREATE TABLE IF NOT EXISTS user (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	hash VARBINARY(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	org_name VARCHAR(64) NOT NULL
);`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS user (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	hash BLOB NOT NULL,
	name TEXT NOT NULL,
	org_name TEXT NOT NULL
);`,
}

//Migrate creates the user table if it doesn't exist.
//Organization data views are managed outside of this server.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmt, ok := userTable[driver]
	if !ok {
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("could not create user table: %w", err)
	}
	return nil
}
