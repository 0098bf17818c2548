package roles

import (
	"context"
	"sync"
	"testing"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"
	"marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*Ledger, context.Context) {
	t.Helper()
	log, _ := testutil.Logger()
	return NewLedger(testutil.DB(t), log), context.Background()
}

func TestSignIn(t *testing.T) {
	l, ctx := newLedger(t)

	u, created, err := l.SignIn(ctx, Profile{Email: "ana@x.com", Name: "Ana"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleCustomer, u.Role)
	assert.Equal(t, domain.StatusNone, u.Status)

	// a second sign-in returns the stored user, not the new profile
	again, created, err := l.SignIn(ctx, Profile{Email: "ana@x.com", Name: "Someone Else"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ana", again.Name)

	_, _, err = l.SignIn(ctx, Profile{})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

func TestRequestPromotion(t *testing.T) {
	t.Run("second request conflicts", func(t *testing.T) {
		l, ctx := newLedger(t)
		_, _, err := l.SignIn(ctx, Profile{Email: "bo@x.com"})
		require.NoError(t, err)

		u, err := l.RequestPromotion(ctx, "bo@x.com")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRequested, u.Status)
		assert.Equal(t, domain.RoleCustomer, u.Role)

		_, err = l.RequestPromotion(ctx, "bo@x.com")
		assert.True(t, apperr.Is(err, apperr.KindConflict))
	})

	t.Run("unknown user", func(t *testing.T) {
		l, ctx := newLedger(t)
		_, err := l.RequestPromotion(ctx, "ghost@x.com")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("verified user may request again", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "sel@x.com", domain.RoleSeller, domain.StatusVerified)

		u, err := l.RequestPromotion(ctx, "sel@x.com")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRequested, u.Status)
	})

	t.Run("concurrent requests admit exactly one", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "race@x.com", domain.RoleCustomer, domain.StatusNone)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var ok, conflicts int
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.RequestPromotion(ctx, "race@x.com")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if apperr.Is(err, apperr.KindConflict) {
					conflicts++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, ok)
		assert.Equal(t, 7, conflicts)
	})
}

func TestDecideRole(t *testing.T) {
	t.Run("admin grants seller and verifies", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "root@x.com", domain.RoleAdmin, domain.StatusVerified)
		testutil.SeedUser(t, l.db, "seller_applicant@x.com", domain.RoleCustomer, domain.StatusRequested)

		u, err := l.DecideRole(ctx, "root@x.com", "seller_applicant@x.com", domain.RoleSeller)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleSeller, u.Role)
		assert.Equal(t, domain.StatusVerified, u.Status)
	})

	t.Run("grant does not require a pending request", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "root@x.com", domain.RoleAdmin, domain.StatusVerified)
		testutil.SeedUser(t, l.db, "quiet@x.com", domain.RoleCustomer, domain.StatusNone)

		u, err := l.DecideRole(ctx, "root@x.com", "quiet@x.com", domain.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, u.Role)
		assert.Equal(t, domain.StatusVerified, u.Status)
	})

	t.Run("non admin is forbidden and target untouched", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "mallory@x.com", domain.RoleSeller, domain.StatusVerified)
		testutil.SeedUser(t, l.db, "victim@x.com", domain.RoleCustomer, domain.StatusRequested)

		for _, actor := range []string{"mallory@x.com", "nobody@x.com"} {
			_, err := l.DecideRole(ctx, actor, "victim@x.com", domain.RoleAdmin)
			assert.True(t, apperr.Is(err, apperr.KindForbidden), actor)
		}

		u, err := l.Get(ctx, "victim@x.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleCustomer, u.Role)
		assert.Equal(t, domain.StatusRequested, u.Status)
	})

	t.Run("missing target", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "root@x.com", domain.RoleAdmin, domain.StatusVerified)

		_, err := l.DecideRole(ctx, "root@x.com", "ghost@x.com", domain.RoleSeller)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("unknown role", func(t *testing.T) {
		l, ctx := newLedger(t)
		testutil.SeedUser(t, l.db, "root@x.com", domain.RoleAdmin, domain.StatusVerified)
		testutil.SeedUser(t, l.db, "c@x.com", domain.RoleCustomer, domain.StatusNone)

		_, err := l.DecideRole(ctx, "root@x.com", "c@x.com", domain.Role("overlord"))
		assert.True(t, apperr.Is(err, apperr.KindInvalid))
	})
}

func TestResolveRole(t *testing.T) {
	l, ctx := newLedger(t)
	testutil.SeedUser(t, l.db, "s@x.com", domain.RoleSeller, domain.StatusVerified)

	role, err := l.ResolveRole(ctx, "s@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, role)

	role, err = l.ResolveRole(ctx, "absent@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, role)
}

func TestListExcept(t *testing.T) {
	l, ctx := newLedger(t)
	testutil.SeedUser(t, l.db, "root@x.com", domain.RoleAdmin, domain.StatusVerified)
	testutil.SeedUser(t, l.db, "a@x.com", domain.RoleCustomer, domain.StatusNone)
	testutil.SeedUser(t, l.db, "b@x.com", domain.RoleSeller, domain.StatusVerified)

	users, err := l.ListExcept(ctx, "root@x.com")
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, "root@x.com", u.Email)
	}
}
