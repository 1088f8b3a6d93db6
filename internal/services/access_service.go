package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
)

const (
	maxRequestPhotos   = 10
	maxDescriptionLen  = 2000
	accessCodeAttempts = 5
	codeCacheTTL       = 24 * time.Hour
)

// CodeCache remembers approved codes so check-code avoids the database.
type CodeCache interface {
	Get(ctx context.Context, code string) (string, bool)
	Set(ctx context.Context, code, requestType string)
}

type RedisCodeCache struct {
	client *redis.Client
}

func NewRedisCodeCache(client *redis.Client) *RedisCodeCache {
	return &RedisCodeCache{client: client}
}

func (c *RedisCodeCache) Get(ctx context.Context, code string) (string, bool) {
	v, err := c.client.Get(ctx, "accesscode:"+code).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCodeCache) Set(ctx context.Context, code, requestType string) {
	_ = c.client.Set(ctx, "accesscode:"+code, requestType, codeCacheTTL).Err()
}

type AccessService struct {
	requests    AccessRequestStore
	cache       CodeCache
	notifier    Notifier
	adminChatID int64
	log         *zap.Logger
	now         func() time.Time
}

func NewAccessService(requests AccessRequestStore, cache CodeCache, notifier Notifier, adminChatID int64, log *zap.Logger) *AccessService {
	return &AccessService{
		requests:    requests,
		cache:       cache,
		notifier:    notifier,
		adminChatID: adminChatID,
		log:         log,
		now:         time.Now,
	}
}

type AccessRequestInput struct {
	TelegramUserID int64
	Username       string
	Type           string
	Description    *string
	Photos         []string
}

// RequestCode files a request for a seller or buyer code. A user has at
// most one pending request per type; asking again returns it.
func (s *AccessService) RequestCode(ctx context.Context, in AccessRequestInput) (*models.AccessRequest, error) {
	if in.TelegramUserID == 0 {
		return nil, invalid("userId is required")
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if !models.IsValidAccessType(in.Type) {
		return nil, invalid("type must be seller or buyer")
	}
	if in.Description != nil && len(*in.Description) > maxDescriptionLen {
		return nil, invalid("description must be at most %d characters", maxDescriptionLen)
	}
	if len(in.Photos) > maxRequestPhotos {
		return nil, invalid("at most %d photos", maxRequestPhotos)
	}

	existing, err := s.requests.PendingForUser(ctx, in.TelegramUserID, in.Type)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	req := &models.AccessRequest{
		TelegramUserID: in.TelegramUserID,
		Username:       strings.TrimPrefix(in.Username, "@"),
		RequestType:    in.Type,
		Description:    in.Description,
		Photos:         in.Photos,
		Status:         models.AccessRequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("access requested", zap.String("request_id", req.ID.String()), zap.String("type", req.RequestType))
	if s.adminChatID != 0 {
		who := req.Username
		if who == "" {
			who = fmt.Sprintf("id %d", req.TelegramUserID)
		} else {
			who = "@" + who
		}
		text := fmt.Sprintf("New %s access request from %s\nRequest: %s", req.RequestType, who, req.ID)
		if req.Description != nil && *req.Description != "" {
			text += "\n\n" + *req.Description
		}
		_ = s.notifier.SendMessage(ctx, s.adminChatID, text)
	}
	return req, nil
}

func (s *AccessService) List(ctx context.Context, status string) ([]models.AccessRequest, error) {
	if status == "" {
		status = models.AccessRequestPending
	}
	switch status {
	case models.AccessRequestPending, models.AccessRequestApproved, models.AccessRequestRejected:
	default:
		return nil, invalid("unknown status %q", status)
	}
	return s.requests.ListByStatus(ctx, status)
}

// Approve issues an 8 character code for a pending request and sends it to
// the requester.
func (s *AccessService) Approve(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	for i := 0; i < accessCodeAttempts; i++ {
		code, err := auth.AccessCode()
		if err != nil {
			return nil, err
		}
		req, err := s.requests.Decide(ctx, id, models.AccessRequestApproved, &code, s.now())
		switch {
		case errors.Is(err, repositories.ErrConflict):
			continue
		case errors.Is(err, repositories.ErrStale):
			return nil, s.undecidable(ctx, id)
		case err != nil:
			return nil, err
		}

		if s.cache != nil {
			s.cache.Set(ctx, code, req.RequestType)
		}
		s.log.Info("access request approved", zap.String("request_id", id.String()))
		_ = s.notifier.SendMessage(ctx, req.TelegramUserID,
			fmt.Sprintf("Your %s access was approved.\nCode: %s", req.RequestType, code))
		return req, nil
	}
	return nil, fmt.Errorf("%w: could not allocate a unique code", ErrConflict)
}

func (s *AccessService) Reject(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	req, err := s.requests.Decide(ctx, id, models.AccessRequestRejected, nil, s.now())
	if errors.Is(err, repositories.ErrStale) {
		return nil, s.undecidable(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("access request rejected", zap.String("request_id", id.String()))
	_ = s.notifier.SendMessage(ctx, req.TelegramUserID, fmt.Sprintf("Your %s access request was declined.", req.RequestType))
	return req, nil
}

func (s *AccessService) undecidable(ctx context.Context, id uuid.UUID) error {
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return notFound(err, "access request")
	}
	return fmt.Errorf("%w: request already decided", ErrInvalidTransition)
}

// CheckCode reports whether code is approved and what access it grants.
func (s *AccessService) CheckCode(ctx context.Context, code string) (*CheckCodeResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &CheckCodeResult{}, nil
	}
	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, code); ok {
			return &CheckCodeResult{Valid: true, Type: t}, nil
		}
	}

	req, err := s.requests.GetByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		return &CheckCodeResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	if req.Status != models.AccessRequestApproved {
		return &CheckCodeResult{}, nil
	}
	if s.cache != nil {
		s.cache.Set(ctx, code, req.RequestType)
	}
	return &CheckCodeResult{Valid: true, Type: req.RequestType}, nil
}

// RedeemCode stamps the first use of an approved code.
func (s *AccessService) RedeemCode(ctx context.Context, code string) error {
	err := s.requests.Redeem(ctx, strings.TrimSpace(code), s.now())
	if errors.Is(err, repositories.ErrStale) {
		if _, gerr := s.requests.GetByCode(ctx, code); gerr != nil {
			return notFound(gerr, "access code")
		}
		return fmt.Errorf("%w: code already redeemed", ErrConflict)
	}
	return err
}
