package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
	domainerror "github.com/facturio/backend/internal/domain/error"
	"github.com/facturio/backend/internal/integration/persistence/model"
)

// invoiceRepository implements the adapter.InvoiceRepository interface.
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance.
func NewInvoiceRepository(db *gorm.DB) adapter.InvoiceRepository {
	return &invoiceRepository{db: db}
}

// GetByID retrieves an invoice by its ID.
func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var invoiceModel model.InvoiceModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&invoiceModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrParentNotFound
		}
		return nil, result.Error
	}
	return invoiceModel.ToEntity(), nil
}

// quoteRepository implements the adapter.QuoteRepository interface.
type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new quote repository instance.
func NewQuoteRepository(db *gorm.DB) adapter.QuoteRepository {
	return &quoteRepository{db: db}
}

// GetByID retrieves a quote by its ID.
func (r *quoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Quote, error) {
	var quoteModel model.QuoteModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&quoteModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrParentNotFound
		}
		return nil, result.Error
	}
	return quoteModel.ToEntity(), nil
}

// clientRepository implements the adapter.ClientRepository interface.
type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository instance.
func NewClientRepository(db *gorm.DB) adapter.ClientRepository {
	return &clientRepository{db: db}
}

// GetByID retrieves a client by its ID.
func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	var clientModel model.ClientModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&clientModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrClientNotFound
		}
		return nil, result.Error
	}
	return clientModel.ToEntity(), nil
}

// userRepository implements the adapter.UserRepository interface.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance.
func NewUserRepository(db *gorm.DB) adapter.UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userModel model.UserModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel)
	if result.Error != nil {
		return nil, result.Error
	}
	return userModel.ToEntity(), nil
}
