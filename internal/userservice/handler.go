package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/graylock/blogapi/internal/common"
)

var (
	ErrAuthenticationFailure = fmt.Errorf("incorrect email or password")
)

func NewUserService(db *sql.DB, mb common.MessageProducer, c *common.Cache, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		m:      newUserModel(db),
		mb:     mb,
		c:      c,
		secret: []byte(secret),
		ttl:    tokenTTL,
	}
}

// Signup creates a new user account, issues an access token and
// publishes a user.signedup event.
func (s *UserService) Signup(ctx context.Context, firstName, lastName, email, password string) (*User, string, error) {
	email = strings.ToLower(email)

	v := common.NewValidator()
	validateName(v, firstName, "first_name")
	validateName(v, lastName, "last_name")
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, "", v.ValidationError()
	}

	u := User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}

	err := u.Password.set(password)
	if err != nil {
		return nil, "", err
	}

	err = s.m.insertUser(ctx, &u)
	if err != nil {
		return nil, "", err
	}

	token, err := issueAccessToken(u.ID, s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}

	data := struct {
		Email     string
		FirstName string
	}{
		Email:     u.Email,
		FirstName: u.FirstName,
	}

	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, "", err
	}

	err = s.mb.Publish(ctx, eventData, common.UserSignedUpKey, common.UserExchange)
	if err != nil {
		return nil, "", err
	}

	return &u, token, nil
}

// Signin verifies the credentials and issues an access token. An
// unknown email and a wrong password both map to
// ErrAuthenticationFailure so callers cannot tell them apart.
func (s *UserService) Signin(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.ToLower(email)

	v := common.NewValidator()
	validateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, "", v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, "", ErrAuthenticationFailure
		default:
			return nil, "", err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrAuthenticationFailure
	}

	token, err := issueAccessToken(user.ID, s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// VerifyAccessToken returns the user id encoded in a valid token.
func (s *UserService) VerifyAccessToken(token string) (int, error) {
	return parseAccessToken(token, s.secret)
}

// GetUserByID looks up a user, consulting the cache first. The cached
// entry is safe to reuse because user records are immutable in scope.
func (s *UserService) GetUserByID(ctx context.Context, id int) (*User, error) {
	if s.c != nil {
		if cached, found := s.c.Get(common.CacheKeyUserByID(id)); found {
			if user, ok := cached.(*User); ok {
				return user, nil
			}
		}
	}

	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.c != nil {
		s.c.Set(common.CacheKeyUserByID(id), user)
	}

	return user, nil
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}
