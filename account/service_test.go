package account_test

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasbyte1/go-ircservices/account"
	"github.com/hasbyte1/go-ircservices/digest"
	"github.com/hasbyte1/go-ircservices/hashing"
	"github.com/hasbyte1/go-ircservices/ticket"
)

type fixture struct {
	svc     *account.Service
	store   *account.Store
	creds   *hashing.Registry
	tickets *ticket.Manager[string]
	clock   *clock.Mock
}

func newFixture(t *testing.T, opts ...account.ServiceOption) *fixture {
	t.Helper()
	engine := digest.New(digest.Std)
	mock := clock.NewMock()

	creds := hashing.NewRegistry()
	md5h, err := hashing.NewSaltedMD5Hasher(engine)
	require.NoError(t, err)
	require.NoError(t, creds.AddLegacy(md5h))
	bc, err := hashing.NewBcryptHasher(hashing.BcryptOptions{Cost: hashing.BcryptMinCost})
	require.NoError(t, err)
	_, err = creds.Install(bc)
	require.NoError(t, err)

	tickets, err := ticket.NewManager[string](engine, ticket.WithClock(mock))
	require.NoError(t, err)
	t.Cleanup(tickets.Close)

	store := account.NewStore(mock)
	return &fixture{
		svc:     account.NewService(store, creds, tickets, opts...),
		store:   store,
		creds:   creds,
		tickets: tickets,
		clock:   mock,
	}
}

func TestService_RegisterIdentify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Register("alice", "hunter2")
	require.NoError(t, err)
	d, _ := hashing.DetectDriver(a.Credential())
	assert.Equal(t, hashing.DriverBcrypt, d)

	got, err := f.svc.Identify(ctx, "ALICE", "hunter2")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = f.svc.Identify(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, account.ErrBadPassword)
	assert.True(t, account.IsAuthFailure(err))

	_, err = f.svc.Identify(ctx, "bob", "hunter2")
	assert.ErrorIs(t, err, account.ErrNoSuchAccount)

	_, err = f.svc.Register("Alice", "x")
	assert.ErrorIs(t, err, account.ErrAccountExists)
}

func TestService_RegisterWithoutSchemeLeavesNothing(t *testing.T) {
	f := newFixture(t)
	f.creds.Restore(hashing.Handle{})
	drops := 0
	f.store.OnDrop(func(*account.Account) { drops++ })

	_, err := f.svc.Register("alice", "hunter2")
	assert.ErrorIs(t, err, hashing.ErrNoActiveScheme)
	assert.False(t, account.IsAuthFailure(err))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, drops, "a rolled-back registration is not a drop")

	// The name is free again.
	_, err = f.store.Register("alice")
	assert.NoError(t, err)
}

func TestService_LegacyAccountMigratesOnIdentify(t *testing.T) {
	f := newFixture(t)
	a, err := f.store.Register("oldtimer")
	require.NoError(t, err)
	sum := md5.Sum([]byte("salt" + "letmein"))
	a.SetCredential("$smd5$" + base64.RawStdEncoding.EncodeToString([]byte("salt")) +
		"$" + base64.RawStdEncoding.EncodeToString(sum[:]))

	_, err = f.svc.Identify(context.Background(), "oldtimer", "letmein")
	require.NoError(t, err)
	d, _ := hashing.DetectDriver(a.Credential())
	assert.Equal(t, hashing.DriverBcrypt, d)

	upgraded := a.Credential()
	_, err = f.svc.Identify(context.Background(), "oldtimer", "letmein")
	require.NoError(t, err)
	assert.Equal(t, upgraded, a.Credential(), "second identify must not rewrite")
}

func TestService_LoginCookies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register("alice", "hunter2")
	require.NoError(t, err)
	_, err = f.svc.Register("bob", "swordfish")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, err, account.ErrBadPassword)
	assert.Equal(t, 0, f.tickets.Len())

	c1, err := f.svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	c2, err := f.svc.Login(ctx, "Alice", "hunter2")
	require.NoError(t, err)
	cb, err := f.svc.Login(ctx, "bob", "swordfish")
	require.NoError(t, err)

	assert.True(t, f.svc.CheckCookie("ALICE", c1))
	assert.False(t, f.svc.CheckCookie("bob", c1))
	assert.False(t, f.svc.CheckCookie("nobody", c1))

	assert.False(t, f.svc.Logout("bob", c1), "cannot log out someone else's cookie")
	assert.True(t, f.svc.Logout("alice", c1))
	assert.False(t, f.svc.CheckCookie("alice", c1))
	assert.True(t, f.svc.CheckCookie("alice", c2))

	assert.Equal(t, 1, f.svc.LogoutAll("alice"))
	assert.True(t, f.svc.CheckCookie("bob", cb))
}

func TestService_CookieExpires(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register("alice", "hunter2")
	require.NoError(t, err)
	c, err := f.svc.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	f.clock.Add(ticket.DefaultLifetime)
	assert.False(t, f.svc.CheckCookie("alice", c))
	require.Eventually(t, func() bool { return f.tickets.Len() == 0 }, time.Second, time.Millisecond)
}

func TestService_ChangePasswordLogsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register("alice", "old")
	require.NoError(t, err)
	c, err := f.svc.Login(ctx, "alice", "old")
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword("alice", "new"))
	assert.False(t, f.svc.CheckCookie("alice", c))
	_, err = f.svc.Identify(ctx, "alice", "old")
	assert.ErrorIs(t, err, account.ErrBadPassword)
	_, err = f.svc.Identify(ctx, "alice", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword("nobody", "x"), account.ErrNoSuchAccount)
}

func TestService_DropDestroysCookies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Register("alice", "pw")
	_, _ = f.svc.Register("bob", "pw")
	ca, _ := f.svc.Login(ctx, "alice", "pw")
	_, _ = f.svc.Login(ctx, "alice", "pw")
	cb, _ := f.svc.Login(ctx, "bob", "pw")

	require.NoError(t, f.svc.Drop("alice"))
	assert.Equal(t, 0, f.tickets.Count("alice"))
	assert.False(t, f.svc.CheckCookie("alice", ca))
	assert.True(t, f.svc.CheckCookie("bob", cb))

	// Re-registering the name must not resurrect the old cookies.
	_, err := f.svc.Register("alice", "pw")
	require.NoError(t, err)
	assert.False(t, f.svc.CheckCookie("alice", ca))
}

func TestService_WithPool(t *testing.T) {
	creds := hashing.NewRegistry()
	bc, _ := hashing.NewBcryptHasher(hashing.BcryptOptions{Cost: hashing.BcryptMinCost})
	_, _ = creds.Install(bc)
	pool, err := hashing.NewPool(creds, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Wait)

	tickets, err := ticket.NewManager[string](digest.New(digest.Std), ticket.WithClock(clock.NewMock()))
	require.NoError(t, err)
	t.Cleanup(tickets.Close)

	svc := account.NewService(account.NewStore(nil), creds, tickets, account.WithPool(pool))
	_, err = svc.Register("alice", "hunter2")
	require.NoError(t, err)

	_, err = svc.Identify(context.Background(), "alice", "hunter2")
	assert.NoError(t, err)
	_, err = svc.Identify(context.Background(), "alice", "bad")
	assert.ErrorIs(t, err, account.ErrBadPassword)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Identify(ctx, "alice", "hunter2")
	assert.True(t, err == nil || errors.Is(err, account.ErrBadPassword),
		"a cancelled identify either completes or fails closed, got %v", err)
}
