package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/models"
)

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.accountSvc.AdminLogin(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := f.accountSvc.AdminLogin(context.Background(), "let-me-in")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, sess.Role)

	claims, err := auth.ParseJWT(f.cfg.JWTSecret, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, AdminID, claims.SubjectID)

	f.cfg.AdminPassword = ""
	_, err = f.accountSvc.AdminLogin(context.Background(), "let-me-in")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}

func TestSellerRegistration(t *testing.T) {
	f := newFixture(t)
	f.setNow(baseTime)

	invite, err := f.accountSvc.CreateSellerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	assert.Len(t, invite.Invite.Code, 32)
	assert.Equal(t, "https://xcro.test/thief/register?code="+invite.Invite.Code, invite.RegisterURL)

	link, err := f.accountSvc.VerifyInvite(context.Background(), invite.Invite.Code)
	require.NoError(t, err)
	assert.Equal(t, models.InviteRoleSeller, link.Role)

	sess, err := f.accountSvc.RegisterSeller(context.Background(), "ghost", "secret1", invite.Invite.Code)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSeller, sess.Role)
	assert.Equal(t, baseTime.Add(f.cfg.SellerJWTExpiry), sess.ExpiresAt)

	_, err = f.accountSvc.VerifyInvite(context.Background(), invite.Invite.Code)
	assert.ErrorIs(t, err, ErrInviteUsed)

	_, err = f.accountSvc.RegisterSeller(context.Background(), "ghost2", "secret1", invite.Invite.Code)
	assert.ErrorIs(t, err, ErrInviteUsed, "an invite registers exactly one seller")

	login, err := f.accountSvc.LoginSeller(context.Background(), "ghost", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.AccountID, login.AccountID)

	_, err = f.accountSvc.LoginSeller(context.Background(), "ghost", "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accountSvc.LoginSeller(context.Background(), "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterSellerValidation(t *testing.T) {
	f := newFixture(t)
	invite, err := f.accountSvc.CreateSellerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	code := invite.Invite.Code

	tests := []struct {
		name     string
		username string
		password string
		code     string
		want     error
	}{
		{"missing fields", "", "secret1", code, ErrInvalidInput},
		{"bad username", "a b", "secret1", code, ErrInvalidInput},
		{"short password", "ghost", "123", code, ErrInvalidInput},
		{"unknown invite", "ghost", "secret1", "deadbeef", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accountSvc.RegisterSeller(context.Background(), tt.username, tt.password, tt.code)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterSellerDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	first, err := f.accountSvc.CreateSellerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	second, err := f.accountSvc.CreateSellerInvite(context.Background(), &AdminID)
	require.NoError(t, err)

	_, err = f.accountSvc.RegisterSeller(context.Background(), "ghost", "secret1", first.Invite.Code)
	require.NoError(t, err)
	_, err = f.accountSvc.RegisterSeller(context.Background(), "ghost", "secret1", second.Invite.Code)
	assert.ErrorIs(t, err, ErrConflict)

	link, err := f.accountSvc.VerifyInvite(context.Background(), second.Invite.Code)
	require.NoError(t, err, "a failed registration leaves the invite usable")
	assert.False(t, link.Used)
}

func TestSellerInviteExpiry(t *testing.T) {
	f := newFixture(t)
	f.cfg.InviteTTL = time.Hour
	f.setNow(baseTime)

	invite, err := f.accountSvc.CreateSellerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	require.NotNil(t, invite.Invite.ExpiresAt)

	f.setNow(baseTime.Add(2 * time.Hour))
	_, err = f.accountSvc.VerifyInvite(context.Background(), invite.Invite.Code)
	assert.ErrorIs(t, err, ErrInviteExpired)

	n, err := f.accountSvc.SweepExpiredInvites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoginWithCode(t *testing.T) {
	f := newFixture(t)
	f.codes.results["ABCD1234"] = &CheckCodeResult{Valid: true, Type: models.AccessTypeSeller}
	f.codes.results["BUYR5678"] = &CheckCodeResult{Valid: true, Type: models.AccessTypeBuyer}

	sess, err := f.accountSvc.LoginWithCode(context.Background(), " ABCD1234 ")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSeller, sess.Role)
	assert.True(t, strings.HasPrefix(sess.Username, "thief_"))
	assert.Equal(t, []string{"ABCD1234"}, f.codes.redeemed)

	again, err := f.accountSvc.LoginWithCode(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, sess.AccountID, again.AccountID, "a code always maps to the same account")
	assert.Len(t, f.codes.redeemed, 1)

	_, err = f.accountSvc.LoginWithCode(context.Background(), "BUYR5678")
	assert.ErrorIs(t, err, ErrWrongCodeType)

	_, err = f.accountSvc.LoginWithCode(context.Background(), "UNKNOWN1")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = f.accountSvc.LoginWithCode(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.codes.err = ErrBotUnavailable
	_, err = f.accountSvc.LoginWithCode(context.Background(), "ABCD1234")
	assert.True(t, errors.Is(err, ErrBotUnavailable))
}

func TestBuyerInviteLogin(t *testing.T) {
	f := newFixture(t)

	invite, err := f.accountSvc.CreateBuyerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]+-[a-z]+-\d{4}$`), invite.Password)
	assert.Equal(t, "https://xcro.test/buyer/login", invite.LoginURL)

	stored, err := f.invites.GetByCode(context.Background(), invite.Invite.Code)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordLookup)
	assert.NotEqual(t, invite.Password, *stored.PasswordLookup, "the plain password is never stored")

	sess, err := f.accountSvc.LoginBuyer(context.Background(), invite.Password)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleBuyer, sess.Role)
	assert.True(t, strings.HasPrefix(sess.Username, "buyer_"))
	assert.Nil(t, sess.Codename)

	stored, err = f.invites.GetByCode(context.Background(), invite.Invite.Code)
	require.NoError(t, err)
	assert.True(t, stored.Used)

	again, err := f.accountSvc.LoginBuyer(context.Background(), invite.Password)
	require.NoError(t, err)
	assert.Equal(t, sess.AccountID, again.AccountID, "the password keeps working for the same buyer")

	_, err = f.accountSvc.LoginBuyer(context.Background(), "wrong-words-0000")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetupProfile(t *testing.T) {
	f := newFixture(t)
	invite, err := f.accountSvc.CreateBuyerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	sess, err := f.accountSvc.LoginBuyer(context.Background(), invite.Password)
	require.NoError(t, err)

	_, err = f.accountSvc.SetupProfile(context.Background(), sess.AccountID, " a ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	b, err := f.accountSvc.SetupProfile(context.Background(), sess.AccountID, "Jane Doe")
	require.NoError(t, err)
	require.NotNil(t, b.Codename)
	assert.Regexp(t, `^[a-z]+-[a-z]+-\d{4}$`, *b.Codename)
	assert.NotEqual(t, "Jane Doe", *b.RealNameEncrypted)

	b2, err := f.accountSvc.SetupProfile(context.Background(), sess.AccountID, "Jane Smith")
	require.NoError(t, err)
	assert.Equal(t, *b.Codename, *b2.Codename, "codename is assigned once")

	roster, err := f.accountSvc.ListBuyers(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].Name)
	assert.Equal(t, "Jane Smith", *roster[0].Name)

	login, err := f.accountSvc.LoginBuyer(context.Background(), invite.Password)
	require.NoError(t, err)
	require.NotNil(t, login.Codename)
	assert.Equal(t, *b.Codename, *login.Codename)

	_, err = f.accountSvc.SetupProfile(context.Background(), uuid.New(), "Someone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInvites(t *testing.T) {
	f := newFixture(t)
	_, err := f.accountSvc.CreateSellerInvite(context.Background(), &AdminID)
	require.NoError(t, err)
	_, err = f.accountSvc.CreateBuyerInvite(context.Background(), &AdminID)
	require.NoError(t, err)

	sellers, err := f.accountSvc.ListInvites(context.Background(), models.InviteRoleSeller)
	require.NoError(t, err)
	assert.Len(t, sellers, 1)

	_, err = f.accountSvc.ListInvites(context.Background(), "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
