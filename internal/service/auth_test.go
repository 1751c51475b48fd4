package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/addrbook/addrbook/internal/cache"
	"github.com/addrbook/addrbook/internal/store/drivers/sqlite"
	"github.com/addrbook/addrbook/pkg/cryptox"
	"github.com/addrbook/addrbook/pkg/jwtx"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type sentMail struct {
	email    string
	username string
	link     string
}

// mailRecorder captures outgoing mail on channels so tests can wait for the
// background sends.
type mailRecorder struct {
	confirmations chan sentMail
	resets        chan sentMail
}

func newMailRecorder() *mailRecorder {
	return &mailRecorder{
		confirmations: make(chan sentMail, 16),
		resets:        make(chan sentMail, 16),
	}
}

func (r *mailRecorder) SendConfirmation(_ context.Context, email, username, link string) {
	r.confirmations <- sentMail{email: email, username: username, link: link}
}

func (r *mailRecorder) SendPasswordReset(_ context.Context, email, username, link string) {
	r.resets <- sentMail{email: email, username: username, link: link}
}

func waitMail(t *testing.T, ch chan sentMail) sentMail {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
		return sentMail{}
	}
}

func requireNoMail(t *testing.T, ch chan sentMail) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("unexpected mail to %s", m.email)
	case <-time.After(100 * time.Millisecond):
	}
}

type authFixture struct {
	auth    *AuthService
	session *SessionService
	store   *sqlite.Store
	redis   *miniredis.Miniredis
	mail    *mailRecorder
	tokens  *TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	codec, err := jwtx.NewHS256([]byte("test-secret"), "addrbook-test")
	require.NoError(t, err)

	tokens := &TokenService{Codec: codec, SessionTTL: time.Hour}
	userCache := cache.NewUserCache(rdb, time.Hour)
	rec := newMailRecorder()

	return &authFixture{
		auth: &AuthService{
			Store:    st,
			Cache:    userCache,
			Tokens:   tokens,
			Notifier: rec,
			BaseURL:  "http://localhost:8080",
		},
		session: &SessionService{Store: st, Cache: userCache, Tokens: tokens},
		store:   st,
		redis:   srv,
		mail:    rec,
		tokens:  tokens,
	}
}

// registerConfirmed runs the full register-and-confirm flow.
func (f *authFixture) registerConfirmed(t *testing.T, username, email, password string) {
	t.Helper()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, username, email, password)
	require.NoError(t, err)

	m := waitMail(t, f.mail.confirmations)
	require.NoError(t, f.auth.ConfirmEmail(ctx, confirmToken(t, m)))
}

// confirmToken pulls the raw token out of a confirmation link.
func confirmToken(t *testing.T, m sentMail) string {
	t.Helper()
	idx := strings.LastIndex(m.link, "/")
	require.Greater(t, idx, -1)
	return m.link[idx+1:]
}

// resetToken pulls the raw token out of a reset link.
func resetToken(t *testing.T, m sentMail) string {
	t.Helper()
	_, token, found := strings.Cut(m.link, "?token=")
	require.True(t, found)
	return token
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	t.Run("creates an unconfirmed user and mails the link", func(t *testing.T) {
		user, err := f.auth.Register(ctx, "deadpool", "deadpool@example.com", "chimichanga")
		require.NoError(t, err)
		require.NotEmpty(t, user.ID)
		require.False(t, user.Confirmed)
		require.NotEqual(t, "chimichanga", user.PasswordHash)

		m := waitMail(t, f.mail.confirmations)
		require.Equal(t, "deadpool@example.com", m.email)
		require.Equal(t, "deadpool", m.username)
		require.Contains(t, m.link, "/api/auth/confirmed_email/")
	})

	t.Run("email collision reported first", func(t *testing.T) {
		_, err := f.auth.Register(ctx, "othername", "deadpool@example.com", "pw")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("username collision", func(t *testing.T) {
		_, err := f.auth.Register(ctx, "deadpool", "other@example.com", "pw")
		require.ErrorIs(t, err, ErrUsernameTaken)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.auth.Register(ctx, "deadpool", "deadpool@example.com", "chimichanga")
	require.NoError(t, err)
	confirmation := waitMail(t, f.mail.confirmations)

	t.Run("wrong password on an unconfirmed account stays uniform", func(t *testing.T) {
		// The password check runs before the confirmation gate, so a caller
		// without the password cannot learn the account's status.
		_, err := f.auth.Login(ctx, "deadpool", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unconfirmed account cannot log in", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "deadpool", "chimichanga")
		require.ErrorIs(t, err, ErrEmailNotConfirmed)
	})

	require.NoError(t, f.auth.ConfirmEmail(ctx, confirmToken(t, confirmation)))

	t.Run("valid credentials mint a bearer session", func(t *testing.T) {
		tok, err := f.auth.Login(ctx, "deadpool", "chimichanga")
		require.NoError(t, err)
		require.Equal(t, "bearer", tok.TokenType)

		username, err := f.tokens.VerifySession(tok.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "deadpool", username)
	})

	t.Run("login populates the credential cache", func(t *testing.T) {
		require.True(t, f.redis.Exists("user:deadpool"))
		raw, err := f.redis.Get("user:deadpool")
		require.NoError(t, err)
		require.Contains(t, raw, "password_hash")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "deadpool", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "nobody", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("cached credentials serve logins after an out-of-band change", func(t *testing.T) {
		// Change the stored hash behind the cache's back. Until the entry
		// expires or is invalidated the old password still logs in.
		newHash, err := cryptox.HashPassword("newpassword")
		require.NoError(t, err)
		require.NoError(t, f.store.Users().UpdatePasswordHash(ctx, "deadpool@example.com", newHash))

		_, err = f.auth.Login(ctx, "deadpool", "chimichanga")
		require.NoError(t, err)

		// Dropping the entry makes the store authoritative again.
		f.redis.Del("user:deadpool")
		_, err = f.auth.Login(ctx, "deadpool", "chimichanga")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = f.auth.Login(ctx, "deadpool", "newpassword")
		require.NoError(t, err)
	})

	t.Run("redis outage degrades to the store", func(t *testing.T) {
		f.redis.SetError("redis down")
		defer f.redis.SetError("")

		_, err := f.auth.Login(ctx, "deadpool", "newpassword")
		require.NoError(t, err)
	})

	t.Run("resolver-populated entry is not trusted for credentials", func(t *testing.T) {
		f.redis.Del("user:deadpool")

		tok, err := f.auth.Login(ctx, "deadpool", "newpassword")
		require.NoError(t, err)

		// Repopulate the cache through the resolver; its entries carry no
		// password hash.
		f.redis.Del("user:deadpool")
		_, err = f.session.Resolve(ctx, tok.AccessToken)
		require.NoError(t, err)
		require.True(t, f.redis.Exists("user:deadpool"))

		_, err = f.auth.Login(ctx, "deadpool", "newpassword")
		require.NoError(t, err)
	})
}

func TestConfirmEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.auth.Register(ctx, "deadpool", "deadpool@example.com", "chimichanga")
	require.NoError(t, err)
	m := waitMail(t, f.mail.confirmations)
	token := confirmToken(t, m)

	t.Run("garbage token collapses to one error", func(t *testing.T) {
		require.ErrorIs(t, f.auth.ConfirmEmail(ctx, "not-a-token"), ErrVerification)
	})

	t.Run("valid token confirms", func(t *testing.T) {
		require.NoError(t, f.auth.ConfirmEmail(ctx, token))

		user, err := f.store.Users().GetUserByEmail(ctx, "deadpool@example.com")
		require.NoError(t, err)
		require.True(t, user.Confirmed)
	})

	t.Run("confirming twice is idempotent", func(t *testing.T) {
		require.NoError(t, f.auth.ConfirmEmail(ctx, token))
	})

	t.Run("token for a vanished account collapses to the same error", func(t *testing.T) {
		tok, err := f.tokens.IssueEmailConfirm("ghost@example.com")
		require.NoError(t, err)
		require.ErrorIs(t, f.auth.ConfirmEmail(ctx, tok), ErrVerification)
	})
}

func TestRequestEmailVerification(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.auth.Register(ctx, "deadpool", "deadpool@example.com", "chimichanga")
	require.NoError(t, err)
	waitMail(t, f.mail.confirmations)

	t.Run("unconfirmed account gets a fresh link", func(t *testing.T) {
		require.NoError(t, f.auth.RequestEmailVerification(ctx, "deadpool@example.com"))
		m := waitMail(t, f.mail.confirmations)
		require.Equal(t, "deadpool@example.com", m.email)
	})

	t.Run("unknown address succeeds without mail", func(t *testing.T) {
		require.NoError(t, f.auth.RequestEmailVerification(ctx, "nobody@example.com"))
		requireNoMail(t, f.mail.confirmations)
	})

	t.Run("already-confirmed account succeeds without mail", func(t *testing.T) {
		require.NoError(t, f.auth.RequestEmailVerification(ctx, "deadpool@example.com"))
		m := waitMail(t, f.mail.confirmations)
		require.NoError(t, f.auth.ConfirmEmail(ctx, confirmToken(t, m)))

		require.NoError(t, f.auth.RequestEmailVerification(ctx, "deadpool@example.com"))
		requireNoMail(t, f.mail.confirmations)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerConfirmed(t, "deadpool", "deadpool@example.com", "chimichanga")

	t.Run("unknown address is reported", func(t *testing.T) {
		require.ErrorIs(t, f.auth.ForgotPassword(ctx, "nobody@example.com"), ErrUserNotFound)
		requireNoMail(t, f.mail.resets)
	})

	t.Run("reset link flows through to a new password", func(t *testing.T) {
		require.NoError(t, f.auth.ForgotPassword(ctx, "deadpool@example.com"))
		m := waitMail(t, f.mail.resets)
		require.Contains(t, m.link, "/reset_password?token=")

		require.NoError(t, f.auth.ResetPassword(ctx, resetToken(t, m), "maximumeffort"))

		_, err := f.auth.Login(ctx, "deadpool", "chimichanga")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = f.auth.Login(ctx, "deadpool", "maximumeffort")
		require.NoError(t, err)
	})

	t.Run("reset invalidates cached credentials", func(t *testing.T) {
		// Warm the cache via login, reset again, and make sure the stale
		// entry does not keep the old password alive.
		_, err := f.auth.Login(ctx, "deadpool", "maximumeffort")
		require.NoError(t, err)
		require.True(t, f.redis.Exists("user:deadpool"))

		require.NoError(t, f.auth.ForgotPassword(ctx, "deadpool@example.com"))
		m := waitMail(t, f.mail.resets)
		require.NoError(t, f.auth.ResetPassword(ctx, resetToken(t, m), "regeneration"))

		require.False(t, f.redis.Exists("user:deadpool"))
		_, err = f.auth.Login(ctx, "deadpool", "maximumeffort")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = f.auth.Login(ctx, "deadpool", "regeneration")
		require.NoError(t, err)
	})

	t.Run("invalid token", func(t *testing.T) {
		require.ErrorIs(t, f.auth.ResetPassword(ctx, "garbage", "whatever"), ErrInvalidResetToken)
	})

	t.Run("expired token reads as invalid", func(t *testing.T) {
		// Reset tokens live three minutes; one minted far in the past is
		// indistinguishable from garbage.
		expired := mintExpiredToken(t, f.tokens, "deadpool@example.com")
		require.ErrorIs(t, f.auth.ResetPassword(ctx, expired, "whatever"), ErrInvalidResetToken)
	})
}

func mintExpiredToken(t *testing.T, tokens *TokenService, email string) string {
	t.Helper()
	claims := jwtx.NewClaims(email, -time.Hour, tokens.Codec.Issuer(), time.Now().UTC())
	raw, err := tokens.Codec.Sign(claims)
	require.NoError(t, err)
	return raw
}
