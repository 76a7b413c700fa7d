package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"opticpos/internal/domain"
	"opticpos/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const itemColumns = `id, item_number, name, item_type, retail_price, sale_price, mrp, hsn_code,
	gst_percent, cgst_percent, sgst_percent, stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(
		&item.ID, &item.ItemNumber, &item.Name, &item.Type,
		&item.RetailPrice, &item.SalePrice, &item.MRP, &item.HSNCode,
		&item.GSTPercent, &item.CGSTPercent, &item.SGSTPercent, &item.Stock,
		&item.CreatedAt, &item.UpdatedAt,
	)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, err
}

func (s *Store) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 128)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListItemIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM inventory_items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0, 128)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, item.ID, item.ItemNumber, item.Name, item.Type,
		item.RetailPrice, item.SalePrice, item.MRP, item.HSNCode,
		item.GSTPercent, item.CGSTPercent, item.SGSTPercent, item.Stock,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateKey
		}
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET item_number = $2, name = $3, item_type = $4, retail_price = $5, sale_price = $6,
			mrp = $7, hsn_code = $8, gst_percent = $9, cgst_percent = $10, sgst_percent = $11,
			stock = $12, updated_at = $13
		WHERE id = $1
	`, item.ID, item.ItemNumber, item.Name, item.Type, item.RetailPrice, item.SalePrice,
		item.MRP, item.HSNCode, item.GSTPercent, item.CGSTPercent, item.SGSTPercent,
		item.Stock, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateKey
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	updated := item
	return &updated, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) DeleteAllItems(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inventory_items`)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// DecrementStock is a single atomic UPDATE; concurrent decrements of the
// same item never lose an update.
func (s *Store) DecrementStock(ctx context.Context, id string, qty int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CountInvoices(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) InvoiceNumberExists(ctx context.Context, invoiceNo string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_no = $1)`, invoiceNo).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

const invoiceColumns = `id, invoice_no, invoice_date, customer, line_items, sub_total, discount_percent,
	discount_amount, taxable_value, cgst_amount, sgst_amount, round_off_amount, grand_total,
	payment_cash, payment_upi, payment_card, advance, remaining, delivery_date,
	ordered, delivered, payment_method, delivered_at, created_at, updated_at`

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var (
		inv          domain.Invoice
		customerRaw  []byte
		lineItemsRaw []byte
		deliveredAt  sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.InvoiceNo, &inv.Date, &customerRaw, &lineItemsRaw,
		&inv.SubTotal, &inv.DiscountPercent, &inv.DiscountAmount, &inv.TaxableValue,
		&inv.CGSTAmount, &inv.SGSTAmount, &inv.RoundOffAmount, &inv.GrandTotal,
		&inv.PaymentCash, &inv.PaymentUPI, &inv.PaymentCard, &inv.Advance, &inv.Remaining,
		&inv.DeliveryDate, &inv.OrderStatus.Ordered, &inv.OrderStatus.Delivered,
		&inv.PaymentMethod, &deliveredAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return inv, err
	}
	if err := json.Unmarshal(customerRaw, &inv.Customer); err != nil {
		return inv, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(lineItemsRaw, &inv.LineItems); err != nil {
		return inv, fmt.Errorf("decode line items: %w", err)
	}
	if deliveredAt.Valid {
		at := deliveredAt.Time.UTC()
		inv.DeliveredAt = &at
	}
	inv.Date = inv.Date.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return inv, nil
}

func invoiceArgs(inv domain.Invoice) ([]any, error) {
	customer, err := json.Marshal(inv.Customer)
	if err != nil {
		return nil, err
	}
	lineItems, err := json.Marshal(inv.LineItems)
	if err != nil {
		return nil, err
	}
	return []any{
		inv.ID, inv.InvoiceNo, inv.Date, customer, lineItems,
		inv.SubTotal, inv.DiscountPercent, inv.DiscountAmount, inv.TaxableValue,
		inv.CGSTAmount, inv.SGSTAmount, inv.RoundOffAmount, inv.GrandTotal,
		inv.PaymentCash, inv.PaymentUPI, inv.PaymentCard, inv.Advance, inv.Remaining,
		inv.DeliveryDate, inv.OrderStatus.Ordered, inv.OrderStatus.Delivered,
		inv.PaymentMethod, nullTime(inv.DeliveredAt), inv.CreatedAt, inv.UpdatedAt,
	}, nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	args, err := invoiceArgs(invoice)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateKey
		}
		return nil, err
	}
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	args, err := invoiceArgs(invoice)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET invoice_no = $2, invoice_date = $3, customer = $4, line_items = $5,
			sub_total = $6, discount_percent = $7, discount_amount = $8, taxable_value = $9,
			cgst_amount = $10, sgst_amount = $11, round_off_amount = $12, grand_total = $13,
			payment_cash = $14, payment_upi = $15, payment_card = $16, advance = $17, remaining = $18,
			delivery_date = $19, ordered = $20, delivered = $21, payment_method = $22,
			delivered_at = $23, created_at = $24, updated_at = $25
		WHERE id = $1
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateKey
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	updated := invoice
	return &updated, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) ListInvoices(ctx context.Context, filter string) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	switch filter {
	case domain.StateOrdered:
		query += ` WHERE ordered = true AND delivered = false`
	case domain.StateDelivered:
		query += ` WHERE delivered = true`
	case "":
	default:
		return nil, store.ErrInvalidInput
	}
	query += ` ORDER BY created_at DESC, invoice_no DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) NextCounter(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequence_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value
	`, name).Scan(&value)
	return value, err
}

func (s *Store) CurrentCounter(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sequence_counters WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return value, err
}

func (s *Store) SeedCounter(ctx context.Context, name string, floor int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequence_counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(sequence_counters.value, EXCLUDED.value)
	`, name, floor)
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, true, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
