// Package modelstorage provides types for querying relational DB.

package modelstorage

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type UserStorageEntry struct {
	ID               uint      `db:"id"`
	UserID           string    `db:"user_id"`
	Serial           int64     `db:"serial"`
	Login            string    `db:"login"`
	Password         string    `db:"password"`
	Name             string    `db:"name"`
	Email            string    `db:"email"`
	EmergencyAddress string    `db:"emergency_address"`
	RegisteredAt     time.Time `db:"registered_at"`
}

type CurrencyStorageEntry struct {
	Serial int64  `db:"serial"`
	Symbol string `db:"symbol"`
	Name   string `db:"name"`
}

type BalanceStorageEntry struct {
	UserID         string          `db:"user_id"`
	CurrencySerial int64           `db:"currency_serial"`
	CurrencySymbol string          `db:"symbol"`
	CurrencyName   string          `db:"name"`
	Amount         decimal.Decimal `db:"amount"`
	Points         decimal.Decimal `db:"points"`
}

type DepositStorageEntry struct {
	DepositID      int64           `db:"deposit_id"`
	UserID         string          `db:"user_id"`
	CurrencySerial int64           `db:"currency_serial"`
	CurrencySymbol string          `db:"symbol"`
	CurrencyName   string          `db:"name"`
	Reference      string          `db:"reference"`
	Amount         decimal.Decimal `db:"amount"`
	CreatedAt      time.Time       `db:"created_at"`
}

type WithdrawalStorageEntry struct {
	ID             int64           `db:"id"`
	UserID         string          `db:"user_id"`
	CurrencySerial int64           `db:"currency_serial"`
	CurrencySymbol string          `db:"symbol"`
	CurrencyName   string          `db:"name"`
	Amount         decimal.Decimal `db:"amount"`
	Dest           string          `db:"dest"`
	CreatedAt      time.Time       `db:"created_at"`
	ProcessedAt    sql.NullTime    `db:"processed_at"`
}

type HandStorageEntry struct {
	Serial    int64     `db:"serial"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}
