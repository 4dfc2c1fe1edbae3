package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

//User represents an authencatable user. OrgName selects the organization's data views.
type User struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Hash    []byte `json:"-"`
	Name    string `json:"name"`
	OrgName string `json:"org_name"`
}

//Validate validates the given User
func (u *User) Validate() error {
	if e, err := mail.ParseAddress(fmt.Sprintf("User <%s>", u.Email)); err != nil || e.Address != u.Email {
		if err != nil {
			return fmt.Errorf("email (%s) must be a valid email: %v", u.Email, err)
		}
		return fmt.Errorf("email (%s) must be a valid email", u.Email)
	}
	if err := ValidateString("name", u.Name, 255); err != nil {
		return err
	}
	return ValidateIdentifier("org_name", u.OrgName, 64)
}

//Dataset returns the User's organization Dataset
func (u *User) Dataset() *Dataset {
	return &Dataset{Org: u.OrgName}
}

//Authenticate authenticates against the database with the given credentials and returns nil if success or error on failure
func (u *User) Authenticate(ctx context.Context, password string) error {
	return bcrypt.CompareHashAndPassword(u.Hash, []byte(password))
}

//ChangePassword updates the password hash to the given password
func (u *User) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := u.Authenticate(ctx, oldPassword); err != nil {
		return &Error{Description: "Could not authenticate password", Type: ErrorTypeUser, Err: errors.New("invalid password")}
	}

	if newPassword == "" {
		return &Error{Description: "Could not validate password", Type: ErrorTypeUser, Err: errors.New("password cannot be empty")}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return &Error{Description: "Could not bcrypt encrypt password", Type: ErrorTypeServer, Err: err}
	}

	u.Hash = hash

	return UpdateUser(ctx, u)
}

//CreateUserWithCredentials creates a new User with the given information and returns it, or an error if one occurred
func CreateUserWithCredentials(ctx context.Context, email, password, name, orgName string) (id int64, err error) {
	if password == "" {
		return 0, &Error{Description: "Could not validate password", Type: ErrorTypeUser, Err: errors.New("password cannot be empty")}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, &Error{Description: "Could not bcrypt encrypt password", Type: ErrorTypeServer, Err: err}
	}

	return CreateUser(ctx, &User{Email: email, Hash: hash, Name: name, OrgName: orgName})
}

//CreateUser creates a new User with the given fields (ID is ignored and created) and returns its ID, or an error if one occurred
func CreateUser(ctx context.Context, user *User) (id int64, err error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	if err = user.Validate(); err != nil {
		return 0, &Error{Description: "Could not validate User", Type: ErrorTypeUser, Err: err}
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO user(email, hash, name, org_name) VALUES(?, ?, ?, ?);", user.Email, user.Hash, user.Name, user.OrgName)
	if err != nil {
		if isDuplicate(err) {
			dup, newErr := ReadUserByEmail(ctx, user.Email)
			if newErr != nil {
				return 0, newErr
			}
			return 0, &Error{Description: "Could not insert User", Type: ErrorTypeDuplicate, Err: err, DuplicateID: dup.ID}
		}
		return 0, &Error{Description: "Could not insert User", Type: ErrorTypeServer, Err: err}
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, &Error{Description: "Could not fetch User id", Type: ErrorTypeServer, Err: err}
	}

	return id, nil
}

//ReadUser returns the User with the given id, or an error if one occurred
func ReadUser(ctx context.Context, id int64) (*User, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	user := &User{ID: id}

	row := tx.QueryRowContext(ctx, "SELECT email, hash, name, org_name FROM user WHERE id=?", id)
	err := row.Scan(&(user.Email), &(user.Hash), &(user.Name), &(user.OrgName))

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, &Error{Description: fmt.Sprintf("Could not query User(%d)", id), Type: ErrorTypeServer, Err: err}
	}

	return user, nil
}

//ReadUserByEmail returns the User with the given email, or an error if one occurred
func ReadUserByEmail(ctx context.Context, email string) (*User, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	user := &User{Email: email}

	row := tx.QueryRowContext(ctx, "SELECT id, hash, name, org_name FROM user WHERE email=?", email)
	err := row.Scan(&(user.ID), &(user.Hash), &(user.Name), &(user.OrgName))

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, &Error{Description: fmt.Sprintf("Could not query UserByEmail(%s)", email), Type: ErrorTypeServer, Err: err}
	}

	return user, nil
}

//UpdateUser updates the fields for the given User (using the ID field), or returns an error if one occurred
func UpdateUser(ctx context.Context, user *User) error {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	if err := user.Validate(); err != nil {
		return &Error{Description: "Could not validate User", Type: ErrorTypeUser, Err: err}
	}

	_, err := tx.ExecContext(ctx, "UPDATE user SET email=?, hash=?, name=?, org_name=? WHERE id=?;", user.Email, user.Hash, user.Name, user.OrgName, user.ID)
	if err != nil {
		if isDuplicate(err) {
			dup, newErr := ReadUserByEmail(ctx, user.Email)
			if newErr != nil {
				return newErr
			}
			return &Error{Description: fmt.Sprintf("Could not update User(%d)", user.ID), Type: ErrorTypeDuplicate, Err: err, DuplicateID: dup.ID}
		}
		return &Error{Description: fmt.Sprintf("Could not update User(%d)", user.ID), Type: ErrorTypeServer, Err: err}
	}

	return nil
}

//CountOrganizationUsers returns the number of Users in the given organization, or an error if one occurred
func CountOrganizationUsers(ctx context.Context, orgName string) (int64, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	var count int64
	row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM user WHERE org_name=?", orgName)
	if err := row.Scan(&count); err != nil {
		return 0, &Error{Description: fmt.Sprintf("Could not count Users in organization %s", orgName), Type: ErrorTypeServer, Err: err}
	}

	return count, nil
}
