package api

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

//ErrorType are APIError types
type ErrorType int

//ErrorTypes
const (
	ErrorTypeUser ErrorType = iota
	ErrorTypeServer
	ErrorTypeDuplicate
)

//Error wraps errors in the API
type Error struct {
	Description string
	Type        ErrorType
	Err         error
	DuplicateID int64
}

func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeUser:
		return fmt.Sprintf("User Error: %s: %v", e.Description, e.Err)
	case ErrorTypeDuplicate:
		return fmt.Sprintf("Duplicate Error: %s: %v", e.Description, e.Err)
	}
	return fmt.Sprintf("Server Error: %s: %v", e.Description, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

//isDuplicate returns true if err is a unique constraint violation from either supported driver
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
