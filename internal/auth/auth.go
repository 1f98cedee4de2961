// Package auth carries the authenticated caller through a request context.
// The caller's user id owns every card a request reads or writes.
package auth

import (
	"context"
	"errors"
)

var ErrNoOwner = errors.New("user not authenticated")

type ctxkey string

const (
	ownerkey ctxkey = "cardowner"
)

type AuthedUser struct {
	UserID   string
	Username string
}

// StoreUserInContext records the caller. A missing username falls back to
// the user id so there is always something to show.
func StoreUserInContext(ctx context.Context, userID string, username string) context.Context {
	if username == "" {
		username = userID
	}
	return context.WithValue(ctx, ownerkey, &AuthedUser{
		UserID:   userID,
		Username: username,
	})
}

func UserFromContext(ctx context.Context) *AuthedUser {
	au, ok := ctx.Value(ownerkey).(*AuthedUser)
	if ok {
		return au
	}
	return nil
}

// OwnerID returns the id that scopes card access, or ErrNoOwner when the
// context has no usable user.
func OwnerID(ctx context.Context) (string, error) {
	au := UserFromContext(ctx)
	if au == nil || au.UserID == "" {
		return "", ErrNoOwner
	}
	return au.UserID, nil
}
