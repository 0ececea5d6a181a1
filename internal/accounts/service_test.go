package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunchmates/lunchmates/internal/shared"
	"github.com/lunchmates/lunchmates/internal/token"
)

type memoryRepo struct {
	users  map[int64]*User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*User)}
}

func (r *memoryRepo) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return nil, shared.ErrDuplicateEmail
		}
		if u.Username == username {
			return nil, shared.ErrDuplicateUsername
		}
	}
	r.nextID++
	now := time.Now()
	user := &User{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) UpdateProfile(ctx context.Context, id int64, username, zipcode string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	for _, other := range r.users {
		if other.ID != id && other.Username == username {
			return shared.ErrDuplicateUsername
		}
	}
	u.Username = username
	u.Zipcode = zipcode
	return nil
}

func (r *memoryRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type capturingNotifier struct {
	registrations []string
	resets        []string
	tokens        []string
}

func (n *capturingNotifier) SendRegistrationLink(ctx context.Context, email, tok string) error {
	n.registrations = append(n.registrations, email)
	n.tokens = append(n.tokens, tok)
	return nil
}

func (n *capturingNotifier) SendPasswordResetLink(ctx context.Context, email, tok string) error {
	n.resets = append(n.resets, email)
	n.tokens = append(n.tokens, tok)
	return nil
}

func newTestService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, BcryptHasher{}, token.NewCodec("test-secret"), notifier, ServiceConfig{
		RegisterTokenTTL: 30 * time.Minute,
		ResetTokenTTL:    time.Hour,
	}, nil)
}

func TestPreRegisterIssuesDecodableToken(t *testing.T) {
	notifier := &capturingNotifier{}
	svc := newTestService(newMemoryRepo(), notifier)

	require.NoError(t, svc.PreRegister(context.Background(), "a@example.com"))
	require.Len(t, notifier.registrations, 1)
	require.Equal(t, "a@example.com", notifier.registrations[0])

	email, err := svc.RedeemRegistrationToken(context.Background(), notifier.tokens[0])
	require.NoError(t, err)
	require.Equal(t, "a@example.com", email)
}

func TestRegisterDuplicateEmailSingleSuccess(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &capturingNotifier{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "alice", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "a@example.com", "alice2", "secret123")
	require.ErrorIs(t, err, shared.ErrDuplicateEmail)
}

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &capturingNotifier{})

	user, err := svc.Register(context.Background(), "a@example.com", "alice", "secret123")
	require.NoError(t, err)
	require.NotEqual(t, "secret123", user.PasswordHash)
	require.True(t, BcryptHasher{}.Verify("secret123", user.PasswordHash))
}

func TestAuthenticateFailureIsGeneric(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &capturingNotifier{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "alice", "secret123")
	require.NoError(t, err)

	_, wrongPassErr := svc.Authenticate(ctx, "a@example.com", "wrongpass1")
	_, unknownErr := svc.Authenticate(ctx, "nobody@example.com", "whatever1")

	// Wrong password and unknown email must be indistinguishable.
	require.ErrorIs(t, wrongPassErr, shared.ErrInvalidCredentials)
	require.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	require.Equal(t, wrongPassErr.Error(), unknownErr.Error())
}

func TestAuthenticateRejectsDeactivated(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &capturingNotifier{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@example.com", "alice", "secret123")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, user.ID))

	_, err = svc.Authenticate(ctx, "a@example.com", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRequestPasswordResetUnknownEmailSilent(t *testing.T) {
	notifier := &capturingNotifier{}
	svc := newTestService(newMemoryRepo(), notifier)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	require.Empty(t, notifier.resets)
}

func TestResetPasswordRotatesCredentials(t *testing.T) {
	notifier := &capturingNotifier{}
	repo := newMemoryRepo()
	svc := newTestService(repo, notifier)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "alice", "oldpassword")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@example.com"))
	require.Len(t, notifier.resets, 1)

	require.NoError(t, svc.ResetPassword(ctx, notifier.tokens[0], "newpassword"))

	_, err = svc.Authenticate(ctx, "a@example.com", "oldpassword")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "a@example.com", "newpassword")
	require.NoError(t, err)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &capturingNotifier{})

	err := svc.ResetPassword(context.Background(), "garbage", "newpassword")
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestResetTokenForDeletedUserInvalid(t *testing.T) {
	// A token whose email no longer resolves to a row behaves exactly
	// like a forged one.
	notifier := &capturingNotifier{}
	svc := newTestService(newMemoryRepo(), notifier)

	tok, err := token.NewCodec("test-secret").Encode("ghost@example.com", time.Hour)
	require.NoError(t, err)

	_, err = svc.RedeemResetToken(context.Background(), tok)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}
