package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"opticpos/internal/domain"
	"opticpos/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	items           map[string]domain.InventoryItem
	invoices        map[string]domain.Invoice
	counters        map[string]int64
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; when
// unset, dev defaults are used and a warning is logged.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").
			Msg("using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns a store with seed users and an empty catalog.
func New() *Store {
	return &Store{
		items:           make(map[string]domain.InventoryItem),
		invoices:        make(map[string]domain.Invoice),
		counters:        make(map[string]int64),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store with a small demo catalog of frames, lenses and
// accessories.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.InventoryItem{
		{ID: "NE-1", ItemNumber: "FR-RB3025", Name: "Aviator Metal Frame", Type: "frame", RetailPrice: 5200, SalePrice: 4800, MRP: 5500, HSNCode: "9003", GSTPercent: 12, Stock: 14},
		{ID: "NE-2", ItemNumber: "FR-TR90-BLK", Name: "TR90 Full Rim Frame", Type: "frame", RetailPrice: 1800, SalePrice: 1500, MRP: 2000, HSNCode: "9003", GSTPercent: 12, Stock: 25},
		{ID: "NE-3", ItemNumber: "LN-156-AR", Name: "Single Vision 1.56 AR Lens", Type: "lens", RetailPrice: 1200, SalePrice: 1000, MRP: 1400, HSNCode: "9001", GSTPercent: 12, Stock: 60},
		{ID: "NE-4", ItemNumber: "LN-PROG-167", Name: "Progressive 1.67 Lens", Type: "lens", RetailPrice: 7800, SalePrice: 7200, MRP: 8500, HSNCode: "9001", GSTPercent: 12, Stock: 10},
		{ID: "NE-5", ItemNumber: "AC-SOL-360", Name: "Contact Lens Solution 360ml", Type: "accessory", RetailPrice: 450, SalePrice: 420, MRP: 480, HSNCode: "3307", GSTPercent: 18, Stock: 40},
	}
	for i, item := range seed {
		item.CGSTPercent = item.GSTPercent / 2
		item.SGSTPercent = item.GSTPercent / 2
		item.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		item.UpdatedAt = item.CreatedAt
		s.items[item.ID] = item
	}
	return s
}

func (s *Store) ListItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (s *Store) ListItemIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) GetItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return nil, store.ErrDuplicateKey
	}
	if s.itemNumberTaken(item.ItemNumber, "") {
		return nil, store.ErrDuplicateKey
	}
	s.items[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return nil, store.ErrNotFound
	}
	if s.itemNumberTaken(item.ItemNumber, item.ID) {
		return nil, store.ErrDuplicateKey
	}
	s.items[item.ID] = item
	updated := item
	return &updated, nil
}

// itemNumberTaken must be called with the lock held.
func (s *Store) itemNumberTaken(itemNumber string, exceptID string) bool {
	if itemNumber == "" {
		return false
	}
	for id, existing := range s.items {
		if id != exceptID && existing.ItemNumber == itemNumber {
			return true
		}
	}
	return false
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) DeleteAllItems(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.items)
	s.items = make(map[string]domain.InventoryItem)
	return removed, nil
}

func (s *Store) DecrementStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	item.Stock -= qty
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item
	return nil
}

func (s *Store) CountInvoices(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices), nil
}

func (s *Store) InvoiceNumberExists(_ context.Context, invoiceNo string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.invoices {
		if existing.InvoiceNo == invoiceNo {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[invoice.ID]; exists {
		return nil, store.ErrDuplicateKey
	}
	for _, existing := range s.invoices {
		if existing.InvoiceNo == invoice.InvoiceNo {
			return nil, store.ErrDuplicateKey
		}
	}
	s.invoices[invoice.ID] = cloneInvoice(invoice)
	created := cloneInvoice(invoice)
	return &created, nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneInvoice(invoice)
	return &found, nil
}

func (s *Store) UpdateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[invoice.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.invoices[invoice.ID] = cloneInvoice(invoice)
	updated := cloneInvoice(invoice)
	return &updated, nil
}

func (s *Store) DeleteInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.invoices, id)
	return nil
}

func (s *Store) ListInvoices(_ context.Context, filter string) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Invoice, 0, len(s.invoices))
	for _, invoice := range s.invoices {
		if invoice.OrderStatus.Matches(filter) {
			result = append(result, cloneInvoice(invoice))
		}
	}
	slices.SortFunc(result, func(a, b domain.Invoice) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.InvoiceNo, a.InvoiceNo)
	})
	return result, nil
}

func (s *Store) NextCounter(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

func (s *Store) CurrentCounter(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[name], nil
}

func (s *Store) SeedCounter(_ context.Context, name string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[name] < floor {
		s.counters[name] = floor
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrDuplicateKey
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneInvoice(invoice domain.Invoice) domain.Invoice {
	invoice.LineItems = slices.Clone(invoice.LineItems)
	if invoice.DeliveredAt != nil {
		at := *invoice.DeliveredAt
		invoice.DeliveredAt = &at
	}
	return invoice
}
