package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// ClientModel represents the clients table in the database.
type ClientModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(255)"`
	Email     string    `gorm:"type:varchar(255)"`
	Language  string    `gorm:"type:varchar(10)"`
	Address   string    `gorm:"type:varchar(255)"`
	City      string    `gorm:"type:varchar(100)"`
	ZipCode   string    `gorm:"type:varchar(20)"`
	Country   string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the ClientModel.
func (ClientModel) TableName() string {
	return "clients"
}

// ToEntity converts a ClientModel to a domain Client entity.
func (m *ClientModel) ToEntity() *entity.Client {
	return &entity.Client{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Email:     m.Email,
		Language:  m.Language,
		Address:   m.Address,
		City:      m.City,
		ZipCode:   m.ZipCode,
		Country:   m.Country,
		CreatedAt: m.CreatedAt,
	}
}

// UserModel represents the users table in the database.
type UserModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email              string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName        string    `gorm:"type:varchar(255)"`
	CompanyName        string    `gorm:"type:varchar(255)"`
	Plan               string    `gorm:"type:varchar(20);not null;default:'free'"`
	SubscriptionStatus string    `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for the UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts a UserModel to a domain User entity.
func (m *UserModel) ToEntity() *entity.User {
	return &entity.User{
		ID:                 m.ID,
		Email:              m.Email,
		DisplayName:        m.DisplayName,
		CompanyName:        m.CompanyName,
		Plan:               entity.PlanTier(m.Plan),
		SubscriptionStatus: entity.SubscriptionStatus(m.SubscriptionStatus),
		CreatedAt:          m.CreatedAt,
	}
}
