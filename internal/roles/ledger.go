// Package roles owns the two-phase promotion workflow: users flag intent
// with RequestPromotion and an admin grants a role with DecideRole.
package roles

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Profile is what the identity provider tells us about a user at sign-in.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// Ledger owns user roles and the seller promotion workflow.
type Ledger struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewLedger returns a Ledger over db.
func NewLedger(db *gorm.DB, log *logrus.Logger) *Ledger {
	return &Ledger{db: db, log: log}
}

// SignIn creates the user on first sign-in as a customer with no pending
// request. Existing users are returned untouched.
func (l *Ledger) SignIn(ctx context.Context, p Profile) (domain.User, bool, error) {
	if p.Email == "" {
		return domain.User{}, false, apperr.Invalid("email is required")
	}
	var u domain.User
	res := l.db.WithContext(ctx).
		Where(domain.User{Email: p.Email}).
		Attrs(domain.User{Name: p.Name, Photo: p.Photo, Role: domain.RoleCustomer, Status: domain.StatusNone}).
		FirstOrCreate(&u)
	if res.Error != nil {
		return domain.User{}, false, apperr.Internal("upsert user", res.Error)
	}
	created := res.RowsAffected > 0
	if created {
		l.log.WithField("email", u.Email).Info("User created")
	}
	return u, created, nil
}

// RequestPromotion flags the user as waiting for an admin decision. The
// check and the write are one conditional UPDATE, so two racing requests
// cannot both succeed.
func (l *Ledger) RequestPromotion(ctx context.Context, email string) (domain.User, error) {
	res := l.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? AND status <> ?", email, domain.StatusRequested).
		Update("status", domain.StatusRequested)
	if res.Error != nil {
		return domain.User{}, apperr.Internal("request promotion", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := l.Get(ctx, email); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, apperr.Conflict("promotion already requested, wait for an admin decision")
	}
	l.log.WithField("email", email).Info("Promotion requested")
	return l.Get(ctx, email)
}

// DecideRole grants newRole to target and marks the user verified. The
// actor's role is read fresh from the store; a non-admin actor gets
// Forbidden and nothing is written.
func (l *Ledger) DecideRole(ctx context.Context, actorEmail, targetEmail string, newRole domain.Role) (domain.User, error) {
	actorRole, err := l.ResolveRole(ctx, actorEmail)
	if err != nil {
		return domain.User{}, err
	}
	if actorRole != domain.RoleAdmin {
		return domain.User{}, apperr.Forbidden("admin access required")
	}
	if !newRole.Valid() {
		return domain.User{}, apperr.Newf(apperr.KindInvalid, "unknown role %q", newRole)
	}

	var target domain.User
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&target, "email = ?", targetEmail).Error; err != nil {
			return err
		}
		return tx.Model(&target).Updates(map[string]any{
			"role":   newRole,
			"status": domain.StatusVerified,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return domain.User{}, apperr.Internal("decide role", err)
	}
	l.log.WithFields(logrus.Fields{
		"admin":  actorEmail,
		"target": targetEmail,
		"role":   newRole,
	}).Info("Role granted")
	return l.Get(ctx, targetEmail)
}

// ResolveRole returns the user's current role, customer when unknown.
func (l *Ledger) ResolveRole(ctx context.Context, email string) (domain.Role, error) {
	u, err := l.Get(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return domain.RoleCustomer, nil
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (l *Ledger) Get(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := l.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return domain.User{}, apperr.Internal(fmt.Sprintf("load user %s", email), err)
	}
	return u, nil
}

// ListExcept returns every user other than email, oldest first.
func (l *Ledger) ListExcept(ctx context.Context, email string) ([]domain.User, error) {
	users := []domain.User{}
	if err := l.db.WithContext(ctx).Where("email <> ?", email).Order("created_at").Find(&users).Error; err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}
