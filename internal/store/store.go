package store

import (
	"context"
	"errors"

	"opticpos/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	ListItemIDs(ctx context.Context) ([]string, error)
	GetItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	DeleteItem(ctx context.Context, id string) error
	DeleteAllItems(ctx context.Context) (int, error)
	// DecrementStock subtracts qty without a floor check. Stock may go negative.
	DecrementStock(ctx context.Context, id string, qty int) error

	CountInvoices(ctx context.Context) (int, error)
	InvoiceNumberExists(ctx context.Context, invoiceNo string) (bool, error)
	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	ListInvoices(ctx context.Context, filter string) ([]domain.Invoice, error)

	NextCounter(ctx context.Context, name string) (int64, error)
	CurrentCounter(ctx context.Context, name string) (int64, error)
	SeedCounter(ctx context.Context, name string, floor int64) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
