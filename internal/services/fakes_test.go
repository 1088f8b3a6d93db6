package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/events"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/vault"
)

// ---- auctions ----

type fakeAuctions struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*models.Auction
	bids     map[uuid.UUID][]models.Bid
	seq      time.Duration
}

func newFakeAuctions() *fakeAuctions {
	return &fakeAuctions{auctions: map[uuid.UUID]*models.Auction{}, bids: map[uuid.UUID][]models.Bid{}}
}

func (f *fakeAuctions) copyOf(a *models.Auction) *models.Auction {
	c := *a
	c.BidCount = len(f.bids[a.ID])
	return &c
}

func (f *fakeAuctions) Create(_ context.Context, a *models.Auction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// strictly increasing creation times keep queue order deterministic
	f.seq += time.Millisecond
	a.CreatedAt = time.Unix(1700000000, 0).Add(f.seq)
	c := *a
	f.auctions[a.ID] = &c
	return nil
}

func (f *fakeAuctions) GetByID(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return f.copyOf(a), nil
}

func (f *fakeAuctions) byStatus(status string) []*models.Auction {
	var out []*models.Auction
	for _, a := range f.auctions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeAuctions) GetActive(_ context.Context) (*models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := f.byStatus(models.AuctionStatusActive)
	if len(active) == 0 {
		return nil, repositories.ErrNotFound
	}
	return f.copyOf(active[0]), nil
}

func (f *fakeAuctions) NextQueued(_ context.Context) (*models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	queued := f.byStatus(models.AuctionStatusQueued)
	if len(queued) == 0 {
		return nil, repositories.ErrNotFound
	}
	return f.copyOf(queued[0]), nil
}

func (f *fakeAuctions) List(_ context.Context, flt repositories.AuctionFilter) ([]models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Auction{}
	for _, a := range f.auctions {
		if flt.Status != nil && a.Status != *flt.Status {
			continue
		}
		if flt.SellerID != nil && a.SellerID != *flt.SellerID {
			continue
		}
		out = append(out, *f.copyOf(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAuctions) CountByStatus(_ context.Context, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byStatus(status)), nil
}

func (f *fakeAuctions) ListEnded(_ context.Context, now time.Time) ([]models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Auction
	for _, a := range f.byStatus(models.AuctionStatusActive) {
		if a.EndsAt != nil && !a.EndsAt.After(now) {
			out = append(out, *f.copyOf(a))
		}
	}
	return out, nil
}

func (f *fakeAuctions) Activate(_ context.Context, id uuid.UUID, startedAt, endsAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok || a.Status != models.AuctionStatusQueued || len(f.byStatus(models.AuctionStatusActive)) > 0 {
		return repositories.ErrStale
	}
	a.Status = models.AuctionStatusActive
	a.StartedAt = &startedAt
	a.EndsAt = &endsAt
	return nil
}

func (f *fakeAuctions) Complete(_ context.Context, id uuid.UUID, p repositories.CompleteParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok || a.Status != models.AuctionStatusActive {
		return repositories.ErrStale
	}
	a.Status = models.AuctionStatusCompleted
	a.WinnerBuyerID = p.WinnerBuyerID
	a.WinningBidID = p.WinningBidID
	a.ReserveMet = p.ReserveMet
	a.CompletedAt = &p.CompletedAt
	return nil
}

func (f *fakeAuctions) PlaceBid(_ context.Context, b *models.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[b.AuctionID]
	if !ok || a.Status != models.AuctionStatusActive || !b.Amount.GreaterThan(a.CurrentPrice) ||
		(a.EndsAt != nil && !a.EndsAt.After(b.CreatedAt)) {
		return repositories.ErrStale
	}
	a.CurrentPrice = b.Amount
	f.bids[b.AuctionID] = append(f.bids[b.AuctionID], *b)
	return nil
}

func (f *fakeAuctions) ListBids(_ context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.Bid{}, f.bids[auctionID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Equal(out[j].Amount) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out, nil
}

// set overwrites an auction directly, for arranging test state.
func (f *fakeAuctions) set(a *models.Auction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *a
	f.auctions[a.ID] = &c
}

// ---- schedule ----

type fakeSchedule struct {
	s *models.Schedule
}

func (f *fakeSchedule) Get(context.Context) (*models.Schedule, error) {
	if f.s == nil {
		return nil, repositories.ErrNotFound
	}
	c := *f.s
	return &c, nil
}

func (f *fakeSchedule) Save(_ context.Context, s *models.Schedule) error {
	s.UpdatedAt = time.Now()
	c := *s
	f.s = &c
	return nil
}

// ---- escrow ----

type fakeEscrow struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.EscrowRecord
}

func newFakeEscrow() *fakeEscrow {
	return &fakeEscrow{records: map[uuid.UUID]*models.EscrowRecord{}}
}

func (f *fakeEscrow) get(auctionID uuid.UUID) (*models.EscrowRecord, error) {
	r, ok := f.records[auctionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeEscrow) GetByAuctionID(_ context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(auctionID)
}

func (f *fakeEscrow) EnsureItemKey(_ context.Context, auctionID uuid.UUID, sellerID *uuid.UUID, itemKey string) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[auctionID]
	if !ok {
		r = &models.EscrowRecord{ID: uuid.New(), AuctionID: auctionID, Status: models.EscrowStatusAwaitingPurchase, CreatedAt: time.Now()}
		f.records[auctionID] = r
	}
	if r.SellerID == nil {
		r.SellerID = sellerID
	}
	if r.ItemKey == nil {
		k := itemKey
		r.ItemKey = &k
		r.ItemSyncedAt = nil
	}
	r.UpdatedAt = time.Now()
	return f.get(auctionID)
}

func (f *fakeEscrow) SetPurchaseKey(_ context.Context, auctionID, buyerID, transactionID uuid.UUID, purchaseKey string) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[auctionID]
	if !ok || r.ItemKey == nil || r.Status != models.EscrowStatusAwaitingPurchase {
		return nil, repositories.ErrStale
	}
	now := time.Now()
	r.PurchaseKey = &purchaseKey
	r.BuyerID = &buyerID
	r.TransactionID = &transactionID
	r.Status = models.EscrowStatusAwaitingRelease
	r.PurchaseGeneratedAt = &now
	r.PurchaseSyncedAt = nil
	return f.get(auctionID)
}

func (f *fakeEscrow) MarkReleased(_ context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[auctionID]
	if !ok || r.Status != models.EscrowStatusAwaitingRelease {
		return nil, repositories.ErrStale
	}
	now := time.Now()
	r.Status = models.EscrowStatusReleased
	r.ReleasedAt = &now
	return f.get(auctionID)
}

func (f *fakeEscrow) Reset(_ context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[auctionID]
	if !ok || r.Status != models.EscrowStatusAwaitingRelease {
		return nil, repositories.ErrStale
	}
	r.Status = models.EscrowStatusAwaitingPurchase
	r.PurchaseKey, r.BuyerID = nil, nil
	r.PurchaseGeneratedAt, r.PurchaseSyncedAt = nil, nil
	return f.get(auctionID)
}

func (f *fakeEscrow) mark(auctionID uuid.UUID, item bool) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[auctionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	now := time.Now()
	if item {
		r.ItemSyncedAt = &now
	} else {
		r.PurchaseSyncedAt = &now
	}
	return f.get(auctionID)
}

func (f *fakeEscrow) MarkItemSynced(_ context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	return f.mark(auctionID, true)
}

func (f *fakeEscrow) MarkPurchaseSynced(_ context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error) {
	return f.mark(auctionID, false)
}

func (f *fakeEscrow) ListPendingPurchases(context.Context) ([]models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.EscrowRecord{}
	for _, r := range f.records {
		if r.Status == models.EscrowStatusAwaitingRelease && r.PurchaseKey != nil && r.PurchaseSyncedAt == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeEscrow) ListPendingItemKeys(context.Context) ([]models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.EscrowRecord{}
	for _, r := range f.records {
		if r.ItemKey != nil && r.ItemSyncedAt == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// ---- accounts ----

type fakeSellers struct {
	mu      sync.Mutex
	sellers map[uuid.UUID]*models.Seller
	invites *fakeInvites
}

func (f *fakeSellers) insert(s *models.Seller) error {
	for _, existing := range f.sellers {
		if existing.Username == s.Username || (s.InviteCode != "" && existing.InviteCode == s.InviteCode) {
			return repositories.ErrConflict
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	c := *s
	f.sellers[s.ID] = &c
	return nil
}

func (f *fakeSellers) Create(_ context.Context, s *models.Seller) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(s)
}

func (f *fakeSellers) CreateWithInvite(_ context.Context, s *models.Seller, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.invites.consume(s.InviteCode, models.InviteRoleSeller, now, true) {
		return repositories.ErrStale
	}
	return f.insert(s)
}

func (f *fakeSellers) find(match func(*models.Seller) bool) (*models.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sellers {
		if match(s) {
			c := *s
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSellers) GetByID(_ context.Context, id uuid.UUID) (*models.Seller, error) {
	return f.find(func(s *models.Seller) bool { return s.ID == id })
}

func (f *fakeSellers) GetByUsername(_ context.Context, username string) (*models.Seller, error) {
	return f.find(func(s *models.Seller) bool { return s.Username == username })
}

func (f *fakeSellers) GetByInviteCode(_ context.Context, code string) (*models.Seller, error) {
	return f.find(func(s *models.Seller) bool { return s.InviteCode == code })
}

func (f *fakeSellers) Touch(context.Context, uuid.UUID) error { return nil }

type fakeBuyers struct {
	mu      sync.Mutex
	buyers  map[uuid.UUID]*models.Buyer
	invites *fakeInvites
}

func (f *fakeBuyers) CreateWithInvite(_ context.Context, b *models.Buyer, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.invites.consume(b.InviteCode, models.InviteRoleBuyer, now, false) {
		return repositories.ErrStale
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = now
	c := *b
	f.buyers[b.ID] = &c
	return nil
}

func (f *fakeBuyers) find(match func(*models.Buyer) bool) (*models.Buyer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.buyers {
		if match(b) {
			c := *b
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBuyers) GetByID(_ context.Context, id uuid.UUID) (*models.Buyer, error) {
	return f.find(func(b *models.Buyer) bool { return b.ID == id })
}

func (f *fakeBuyers) GetByInviteCode(_ context.Context, code string) (*models.Buyer, error) {
	return f.find(func(b *models.Buyer) bool { return b.InviteCode == code })
}

func (f *fakeBuyers) List(context.Context) ([]models.Buyer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Buyer{}
	for _, b := range f.buyers {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBuyers) CodenameTaken(_ context.Context, codename string) (bool, error) {
	_, err := f.find(func(b *models.Buyer) bool { return b.Codename != nil && *b.Codename == codename })
	return err == nil, nil
}

func (f *fakeBuyers) SetProfile(_ context.Context, id uuid.UUID, realNameEncrypted, codename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buyers[id]
	if !ok {
		return repositories.ErrNotFound
	}
	b.RealNameEncrypted = &realNameEncrypted
	b.Codename = &codename
	return nil
}

func (f *fakeBuyers) Touch(context.Context, uuid.UUID) error { return nil }

type fakeInvites struct {
	mu    sync.Mutex
	links map[string]*models.InviteLink
}

func newFakeInvites() *fakeInvites {
	return &fakeInvites{links: map[string]*models.InviteLink{}}
}

func (f *fakeInvites) consume(code, role string, now time.Time, checkExpiry bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[code]
	if !ok || l.Role != role || l.Used || (checkExpiry && l.Expired(now)) {
		return false
	}
	l.Used = true
	l.UsedAt = &now
	return true
}

func (f *fakeInvites) Create(_ context.Context, l *models.InviteLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.links {
		if existing.Code == l.Code || (l.PasswordLookup != nil && existing.PasswordLookup != nil && *existing.PasswordLookup == *l.PasswordLookup) {
			return repositories.ErrConflict
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	c := *l
	f.links[l.Code] = &c
	return nil
}

func (f *fakeInvites) GetByCode(_ context.Context, code string) (*models.InviteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (f *fakeInvites) GetByPasswordLookup(_ context.Context, lookup string) (*models.InviteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.PasswordLookup != nil && *l.PasswordLookup == lookup {
			c := *l
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeInvites) ListByRole(_ context.Context, role string) ([]models.InviteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.InviteLink{}
	for _, l := range f.links {
		if l.Role == role {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeInvites) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for code, l := range f.links {
		if !l.Used && l.Expired(now) {
			delete(f.links, code)
			n++
		}
	}
	return n, nil
}

// ---- transactions ----

type fakeTransactions struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (f *fakeTransactions) Create(_ context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.txs {
		if existing.AuctionID == t.AuctionID {
			return repositories.ErrConflict
		}
	}
	t.CreatedAt = time.Now()
	f.txs = append(f.txs, *t)
	return nil
}

func (f *fakeTransactions) GetByAuctionID(_ context.Context, auctionID uuid.UUID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.txs {
		if t.AuctionID == auctionID {
			c := t
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeTransactions) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Transaction{}
	for _, t := range f.txs {
		if t.BuyerID == buyerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTransactions) List(_ context.Context, limit, offset int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Transaction{}
	for i := len(f.txs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.txs[i])
	}
	return out, nil
}

// ---- access requests ----

type fakeAccessRequests struct {
	mu   sync.Mutex
	reqs map[uuid.UUID]*models.AccessRequest
}

func newFakeAccessRequests() *fakeAccessRequests {
	return &fakeAccessRequests{reqs: map[uuid.UUID]*models.AccessRequest{}}
}

func (f *fakeAccessRequests) Create(_ context.Context, a *models.AccessRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	c := *a
	f.reqs[a.ID] = &c
	return nil
}

func (f *fakeAccessRequests) find(match func(*models.AccessRequest) bool) (*models.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reqs {
		if match(r) {
			c := *r
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAccessRequests) GetByID(_ context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	return f.find(func(r *models.AccessRequest) bool { return r.ID == id })
}

func (f *fakeAccessRequests) GetByCode(_ context.Context, code string) (*models.AccessRequest, error) {
	return f.find(func(r *models.AccessRequest) bool { return r.Code != nil && *r.Code == code })
}

func (f *fakeAccessRequests) PendingForUser(_ context.Context, userID int64, requestType string) (*models.AccessRequest, error) {
	return f.find(func(r *models.AccessRequest) bool {
		return r.TelegramUserID == userID && r.RequestType == requestType && r.Status == models.AccessRequestPending
	})
}

func (f *fakeAccessRequests) ListByStatus(_ context.Context, status string) ([]models.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.AccessRequest{}
	for _, r := range f.reqs {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeAccessRequests) Decide(_ context.Context, id uuid.UUID, status string, code *string, now time.Time) (*models.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok || r.Status != models.AccessRequestPending {
		return nil, repositories.ErrStale
	}
	r.Status = status
	r.Code = code
	r.DecidedAt = &now
	c := *r
	return &c, nil
}

func (f *fakeAccessRequests) Redeem(_ context.Context, code string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reqs {
		if r.Code != nil && *r.Code == code && r.Status == models.AccessRequestApproved && r.RedeemedAt == nil {
			r.RedeemedAt = &now
			return nil
		}
	}
	return repositories.ErrStale
}

// ---- infrastructure ----

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, e models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLocker struct {
	held bool
}

func (f *fakeLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	if f.held {
		return func() {}, false, nil
	}
	f.held = true
	return func() { f.held = false }, true, nil
}

type fakeCodes struct {
	results  map[string]*CheckCodeResult
	err      error
	redeemed []string
}

func (f *fakeCodes) CheckCode(_ context.Context, code string) (*CheckCodeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[code]; ok {
		return r, nil
	}
	return &CheckCodeResult{}, nil
}

func (f *fakeCodes) RedeemCode(_ context.Context, code string) {
	f.redeemed = append(f.redeemed, code)
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID, text})
	return nil
}

// ---- fixture ----

type fixture struct {
	cfg       *config.Config
	vault     *vault.Vault
	auctions  *fakeAuctions
	schedule  *fakeSchedule
	escrow    *fakeEscrow
	invites   *fakeInvites
	sellers   *fakeSellers
	buyers    *fakeBuyers
	txs       *fakeTransactions
	audit     *fakeAudit
	publisher *fakePublisher
	locker    *fakeLocker
	codes     *fakeCodes

	escrowSvc  *EscrowService
	auctionSvc *AuctionService
	accountSvc *AccountService
	txSvc      *TransactionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := vault.New("test-encryption-key")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:              "test-secret",
		AdminJWTExpiration:     time.Hour,
		SellerJWTExpiry:        7 * 24 * time.Hour,
		BuyerJWTExpiry:         30 * 24 * time.Hour,
		AdminPassword:          "let-me-in",
		AuctionDefaultDuration: time.Minute,
		SchedulerLockTTL:       5 * time.Second,
		PublicBaseURL:          "https://xcro.test/",
		LiveFeedLimit:          25,
	}

	invites := newFakeInvites()
	f := &fixture{
		cfg:       cfg,
		vault:     v,
		auctions:  newFakeAuctions(),
		schedule:  &fakeSchedule{},
		escrow:    newFakeEscrow(),
		invites:   invites,
		sellers:   &fakeSellers{sellers: map[uuid.UUID]*models.Seller{}, invites: invites},
		buyers:    &fakeBuyers{buyers: map[uuid.UUID]*models.Buyer{}, invites: invites},
		txs:       &fakeTransactions{},
		audit:     &fakeAudit{},
		publisher: &fakePublisher{},
		locker:    &fakeLocker{},
		codes:     &fakeCodes{results: map[string]*CheckCodeResult{}},
	}

	log := zap.NewNop()
	f.escrowSvc = NewEscrowService(f.escrow, f.auctions, f.audit, f.publisher, 32, log)
	f.auctionSvc = NewAuctionService(f.auctions, f.schedule, f.escrowSvc, f.audit, v, f.publisher, f.locker, cfg, log)
	f.accountSvc = NewAccountService(f.sellers, f.buyers, f.invites, f.codes, f.audit, v, cfg, log)
	f.txSvc = NewTransactionService(f.txs, f.auctions, f.buyers, f.escrowSvc, f.audit, v, f.publisher, cfg.LiveFeedLimit, log)
	return f
}

// setNow pins the clock of every time-aware service.
func (f *fixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.auctionSvc.now = clock
	f.accountSvc.now = clock
}
