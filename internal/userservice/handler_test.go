package userservice

import (
	"context"
	"testing"
	"time"

	"github.com/graylock/blogapi/internal/common"
	"github.com/stretchr/testify/assert"
)

type stubProducer struct {
	published [][]byte
}

func (p *stubProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	p.published = append(p.published, msg)
	return nil
}

func setupTestService(t *testing.T) (*UserService, *stubProducer) {
	db := common.TestDB(t, "file://../../migrations")
	producer := &stubProducer{}
	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	return NewUserService(db, producer, cache, "test-secret", time.Hour), producer
}

func TestSignup(t *testing.T) {
	s, producer := setupTestService(t)
	ctx := context.Background()

	testCases := []struct {
		name        string
		firstName   string
		lastName    string
		email       string
		password    string
		expectedErr error
	}{
		{
			name:      "valid signup",
			firstName: "John",
			lastName:  "Doe",
			email:     "john@example.com",
			password:  "password123",
		},
		{
			name:        "missing first name",
			lastName:    "Doe",
			email:       "john2@example.com",
			password:    "password123",
			expectedErr: common.ValidationError{Errors: map[string]string{"first_name": "must be provided"}},
		},
		{
			name:        "malformed email",
			firstName:   "John",
			lastName:    "Doe",
			email:       "not-an-email",
			password:    "password123",
			expectedErr: common.ValidationError{Errors: map[string]string{"email": "must be a valid email address"}},
		},
		{
			name:        "short password",
			firstName:   "John",
			lastName:    "Doe",
			email:       "john3@example.com",
			password:    "short",
			expectedErr: common.ValidationError{Errors: map[string]string{"password": "must be between 6 and 72 characters long"}},
		},
		{
			name:        "duplicate email",
			firstName:   "Johnny",
			lastName:    "Doe",
			email:       "john@example.com",
			password:    "password123",
			expectedErr: ErrDuplicateEmail,
		},
		{
			name:        "duplicate email different case",
			firstName:   "Johnny",
			lastName:    "Doe",
			email:       "John@Example.COM",
			password:    "password123",
			expectedErr: ErrDuplicateEmail,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, token, err := s.Signup(ctx, tc.firstName, tc.lastName, tc.email, tc.password)
			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, "john@example.com", user.Email)
			assert.NotZero(t, user.ID)

			// the token decodes back to the new user's id
			userID, err := s.VerifyAccessToken(token)
			assert.NoError(t, err)
			assert.Equal(t, user.ID, userID)
		})
	}

	// one event per successful signup
	assert.Len(t, producer.published, 1)
}

func TestSignin(t *testing.T) {
	s, _ := setupTestService(t)
	ctx := context.Background()

	_, _, err := s.Signup(ctx, "Jane", "Doe", "jane@example.com", "password123")
	assert.NoError(t, err)

	testCases := []struct {
		name        string
		email       string
		password    string
		expectedErr error
	}{
		{
			name:     "valid credentials",
			email:    "jane@example.com",
			password: "password123",
		},
		{
			name:     "valid credentials mixed case email",
			email:    "Jane@Example.com",
			password: "password123",
		},
		{
			name:        "wrong password",
			email:       "jane@example.com",
			password:    "wrongpassword",
			expectedErr: ErrAuthenticationFailure,
		},
		{
			name:        "unknown email",
			email:       "nobody@example.com",
			password:    "password123",
			expectedErr: ErrAuthenticationFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, token, err := s.Signin(ctx, tc.email, tc.password)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, "jane@example.com", user.Email)
		})
	}
}

func TestGetUserByID(t *testing.T) {
	s, _ := setupTestService(t)
	ctx := context.Background()

	created, _, err := s.Signup(ctx, "Carol", "Smith", "carol@example.com", "password123")
	assert.NoError(t, err)

	user, err := s.GetUserByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	// second lookup comes from the cache
	cached, err := s.GetUserByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, user, cached)

	_, err = s.GetUserByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
}
