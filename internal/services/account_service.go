package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/vault"
)

const (
	codenameAttempts = 200
	inviteAttempts   = 20
	minPasswordLen   = 6
	minRealNameLen   = 2
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// CodeChecker validates bot-issued access codes.
type CodeChecker interface {
	CheckCode(ctx context.Context, code string) (*CheckCodeResult, error)
	RedeemCode(ctx context.Context, code string)
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	AccountID uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Codename  *string   `json:"codename,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AccountService struct {
	sellers SellerStore
	buyers  BuyerStore
	invites InviteStore
	codes   CodeChecker
	audit   AuditStore
	vault   *vault.Vault
	cfg     *config.Config
	log     *zap.Logger
	now     func() time.Time
}

func NewAccountService(
	sellers SellerStore,
	buyers BuyerStore,
	invites InviteStore,
	codes CodeChecker,
	audit AuditStore,
	v *vault.Vault,
	cfg *config.Config,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		sellers: sellers,
		buyers:  buyers,
		invites: invites,
		codes:   codes,
		audit:   audit,
		vault:   v,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

func (s *AccountService) session(id uuid.UUID, username, role string, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := auth.GenerateJWT(s.cfg.JWTSecret, id, username, role, ttl)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Role: role, AccountID: id, Username: username, ExpiresAt: s.now().Add(ttl)}, nil
}

// ---- Admin ----

// AdminID is the fixed subject of admin tokens.
var AdminID = uuid.MustParse("00000000-0000-0000-0000-0000000000ad")

func (s *AccountService) AdminLogin(ctx context.Context, password string) (*Session, error) {
	if !s.cfg.AdminLoginEnabled() {
		return nil, ErrAdminDisabled
	}
	if !auth.CheckAdminPassword(s.cfg.AdminPasswordHash, s.cfg.AdminPassword, password) {
		s.log.Warn("admin login failed")
		return nil, ErrInvalidCredentials
	}
	return s.session(AdminID, "admin", auth.RoleAdmin, s.cfg.AdminJWTExpiration)
}

// ---- Invites ----

type SellerInvite struct {
	Invite      *models.InviteLink `json:"invite"`
	RegisterURL string             `json:"register_url"`
}

type BuyerInvite struct {
	Invite   *models.InviteLink `json:"invite"`
	Password string             `json:"password"`
	LoginURL string             `json:"login_url"`
}

func (s *AccountService) inviteExpiry() *time.Time {
	if s.cfg.InviteTTL <= 0 {
		return nil
	}
	t := s.now().Add(s.cfg.InviteTTL)
	return &t
}

func (s *AccountService) baseURL() string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/")
}

func (s *AccountService) CreateSellerInvite(ctx context.Context, adminID *uuid.UUID) (*SellerInvite, error) {
	var link *models.InviteLink
	for i := 0; i < inviteAttempts; i++ {
		code, err := auth.InviteCode()
		if err != nil {
			return nil, err
		}
		link = &models.InviteLink{Code: code, Role: models.InviteRoleSeller, ExpiresAt: s.inviteExpiry()}
		err = s.invites.Create(ctx, link)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrConflict) {
			return nil, err
		}
		link = nil
	}
	if link == nil {
		return nil, fmt.Errorf("%w: could not allocate a unique invite code", ErrConflict)
	}

	s.logInvite(ctx, adminID, link)
	return &SellerInvite{Invite: link, RegisterURL: s.baseURL() + "/thief/register?code=" + link.Code}, nil
}

// CreateBuyerInvite issues a buyer invite with a readable password. Only an
// HMAC of the password is stored, so it is returned exactly once.
func (s *AccountService) CreateBuyerInvite(ctx context.Context, adminID *uuid.UUID) (*BuyerInvite, error) {
	for i := 0; i < inviteAttempts; i++ {
		code, err := auth.InviteCode()
		if err != nil {
			return nil, err
		}
		password, err := auth.ReadablePassword()
		if err != nil {
			return nil, err
		}
		lookup := s.vault.Lookup(password)
		link := &models.InviteLink{Code: code, Role: models.InviteRoleBuyer, PasswordLookup: &lookup, ExpiresAt: s.inviteExpiry()}

		err = s.invites.Create(ctx, link)
		if errors.Is(err, repositories.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logInvite(ctx, adminID, link)
		return &BuyerInvite{Invite: link, Password: password, LoginURL: s.baseURL() + "/buyer/login"}, nil
	}
	return nil, fmt.Errorf("%w: could not allocate a unique invite password", ErrConflict)
}

func (s *AccountService) logInvite(ctx context.Context, adminID *uuid.UUID, link *models.InviteLink) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    adminID,
		ActorType:  "admin",
		Action:     "invite_created",
		EntityType: "invite",
		EntityID:   &link.ID,
		Meta:       map[string]any{"role": link.Role},
	})
	s.log.Info("invite created", zap.String("role", link.Role), zap.String("invite_id", link.ID.String()))
}

func (s *AccountService) ListInvites(ctx context.Context, role string) ([]models.InviteLink, error) {
	if role != models.InviteRoleSeller && role != models.InviteRoleBuyer {
		return nil, invalid("unknown invite role %q", role)
	}
	return s.invites.ListByRole(ctx, role)
}

// VerifyInvite checks that code is an unused, unexpired seller invite.
func (s *AccountService) VerifyInvite(ctx context.Context, code string) (*models.InviteLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("invite code is required")
	}
	link, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "invite")
	}
	if link.Role != models.InviteRoleSeller {
		return nil, fmt.Errorf("invite: %w", ErrNotFound)
	}
	if link.Used {
		return nil, ErrInviteUsed
	}
	if link.Expired(s.now()) {
		return nil, ErrInviteExpired
	}
	return link, nil
}

// SweepExpiredInvites deletes unused invites past their expiry.
func (s *AccountService) SweepExpiredInvites(ctx context.Context) (int64, error) {
	n, err := s.invites.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired invites removed", zap.Int64("count", n))
	}
	return n, nil
}

// ---- Sellers ----

func (s *AccountService) RegisterSeller(ctx context.Context, username, password, inviteCode string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.TrimSpace(inviteCode) == "" {
		return nil, invalid("username, password and invite code are required")
	}
	if !usernameRe.MatchString(username) {
		return nil, invalid("username must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if len(password) < minPasswordLen {
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}

	link, err := s.VerifyInvite(ctx, inviteCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.sellers.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", ErrConflict)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	seller := &models.Seller{Username: username, PasswordHash: hash, InviteCode: link.Code}
	if err := s.sellers.CreateWithInvite(ctx, seller, s.now()); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return nil, fmt.Errorf("%w: username already taken", ErrConflict)
		case errors.Is(err, repositories.ErrStale):
			return nil, ErrInviteUsed
		}
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    &seller.ID,
		ActorType:  "seller",
		Action:     "seller_registered",
		EntityType: "seller",
		EntityID:   &seller.ID,
	})
	s.log.Info("seller registered", zap.String("seller_id", seller.ID.String()))
	return s.session(seller.ID, seller.Username, auth.RoleSeller, s.cfg.SellerJWTExpiry)
}

func (s *AccountService) LoginSeller(ctx context.Context, username, password string) (*Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, invalid("missing credentials")
	}
	seller, err := s.sellers.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(seller.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	_ = s.sellers.Touch(ctx, seller.ID)
	return s.session(seller.ID, seller.Username, auth.RoleSeller, s.cfg.SellerJWTExpiry)
}

// LoginWithCode signs a seller in with a bot-issued code. Each code is
// bound to one thief_ account, created on first use.
func (s *AccountService) LoginWithCode(ctx context.Context, code string) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}

	res, err := s.codes.CheckCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, ErrInvalidCode
	}
	if res.Type != "" && res.Type != models.AccessTypeSeller {
		return nil, ErrWrongCodeType
	}

	marker := "bot:" + code
	seller, err := s.sellerByCode(ctx, marker)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		suffix, err := auth.RandomHex(8)
		if err != nil {
			return nil, err
		}
		seller = &models.Seller{Username: "thief_" + suffix, PasswordHash: "", InviteCode: marker}
		err = s.sellers.Create(ctx, seller)
		switch {
		case errors.Is(err, repositories.ErrConflict):
			// a concurrent login with the same code won the insert
			if seller, err = s.sellerByCode(ctx, marker); err != nil || seller == nil {
				return nil, fmt.Errorf("%w: code login raced", ErrConflict)
			}
		case err != nil:
			return nil, err
		default:
			s.codes.RedeemCode(ctx, code)
			s.log.Info("seller created from access code", zap.String("seller_id", seller.ID.String()))
		}
	}
	_ = s.sellers.Touch(ctx, seller.ID)
	return s.session(seller.ID, seller.Username, auth.RoleSeller, s.cfg.SellerJWTExpiry)
}

// sellerByCode returns the account bound to a bot code, or nil.
func (s *AccountService) sellerByCode(ctx context.Context, marker string) (*models.Seller, error) {
	seller, err := s.sellers.GetByInviteCode(ctx, marker)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return seller, err
}

func (s *AccountService) Seller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "seller")
	}
	return seller, nil
}

// ---- Buyers ----

// LoginBuyer signs a buyer in with their invite password. The first login
// creates the buyer_ account and consumes the invite.
func (s *AccountService) LoginBuyer(ctx context.Context, password string) (*Session, error) {
	password = strings.TrimSpace(password)
	if password == "" {
		return nil, invalid("password required")
	}

	link, err := s.invites.GetByPasswordLookup(ctx, s.vault.Lookup(password))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if link.Role != models.InviteRoleBuyer {
		return nil, ErrInvalidCredentials
	}

	buyer, err := s.buyers.GetByInviteCode(ctx, link.Code)
	switch {
	case err == nil:
		if !auth.CheckPassword(buyer.PasswordHash, password) {
			return nil, ErrInvalidCredentials
		}
	case errors.Is(err, repositories.ErrNotFound):
		if link.Expired(s.now()) {
			return nil, ErrInviteExpired
		}
		buyer, err = s.createBuyer(ctx, link, password)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	_ = s.buyers.Touch(ctx, buyer.ID)
	sess, err := s.session(buyer.ID, buyer.Username, auth.RoleBuyer, s.cfg.BuyerJWTExpiry)
	if err != nil {
		return nil, err
	}
	sess.Codename = buyer.Codename
	return sess, nil
}

func (s *AccountService) createBuyer(ctx context.Context, link *models.InviteLink, password string) (*models.Buyer, error) {
	suffix, err := auth.RandomHex(8)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	buyer := &models.Buyer{Username: "buyer_" + suffix, PasswordHash: hash, InviteCode: link.Code}
	if err := s.buyers.CreateWithInvite(ctx, buyer, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return nil, ErrInviteUsed
		}
		return nil, err
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    &buyer.ID,
		ActorType:  "buyer",
		Action:     "buyer_activated",
		EntityType: "buyer",
		EntityID:   &buyer.ID,
	})
	s.log.Info("buyer activated", zap.String("buyer_id", buyer.ID.String()))
	return buyer, nil
}

func (s *AccountService) Buyer(ctx context.Context, id uuid.UUID) (*models.Buyer, error) {
	buyer, err := s.buyers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "buyer")
	}
	return buyer, nil
}

// SetupProfile stores the buyer's encrypted real name and gives them a
// codename. An existing codename is kept.
func (s *AccountService) SetupProfile(ctx context.Context, buyerID uuid.UUID, realName string) (*models.Buyer, error) {
	realName = strings.TrimSpace(realName)
	if len([]rune(realName)) < minRealNameLen {
		return nil, invalid("valid name is required")
	}

	buyer, err := s.Buyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	enc, err := s.vault.Encrypt(realName)
	if err != nil {
		return nil, err
	}

	codename := ""
	if buyer.Codename != nil && *buyer.Codename != "" {
		codename = *buyer.Codename
	} else if codename, err = s.uniqueCodename(ctx); err != nil {
		return nil, err
	}

	if err := s.buyers.SetProfile(ctx, buyerID, enc, codename); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("%w: codename taken, retry", ErrConflict)
		}
		return nil, notFound(err, "buyer")
	}
	buyer.RealNameEncrypted = &enc
	buyer.Codename = &codename
	return buyer, nil
}

func (s *AccountService) uniqueCodename(ctx context.Context) (string, error) {
	for i := 0; i < codenameAttempts; i++ {
		name, err := auth.Codename()
		if err != nil {
			return "", err
		}
		taken, err := s.buyers.CodenameTaken(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	suffix, err := auth.RandomHex(3)
	if err != nil {
		return "", err
	}
	return "shadow-fox-" + suffix, nil
}

// ListBuyers is the admin roster with real names decrypted.
func (s *AccountService) ListBuyers(ctx context.Context) ([]models.BuyerAdminView, error) {
	buyers, err := s.buyers.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.BuyerAdminView, 0, len(buyers))
	for _, b := range buyers {
		out = append(out, models.BuyerAdminView{
			ID:        b.ID,
			Username:  b.Username,
			Codename:  b.Codename,
			Name:      s.vault.SafeDecrypt(b.RealNameEncrypted),
			CreatedAt: b.CreatedAt,
		})
	}
	return out, nil
}
