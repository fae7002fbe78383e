package processor

import (
	"context"

	"pokerroom/internal/models/modeldto"
)

// Processor defines the intermediary service between API handlers and storage.
type Processor interface {
	GetUserID(accessToken string) (string, error)
	AddNewUser(ctx context.Context, user modeldto.User) (string, error)
	LoginUser(ctx context.Context, credentials modeldto.User) (string, error)
	GetAccount(ctx context.Context, userID string) (*modeldto.Account, error)
	GetBalances(ctx context.Context, userID string) ([]modeldto.Balance, error)
	GetDeposits(ctx context.Context, userID string) ([]modeldto.Deposit, error)
	GetWithdrawals(ctx context.Context, userID string) ([]modeldto.Withdrawal, error)
	GetHands(ctx context.Context, userID string) ([]modeldto.Hand, error)
	AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit) error
	AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error
	ConvertPoints(ctx context.Context, userID string, currencySerial int64) error
	AddNewHand(ctx context.Context, userID, handSerial string) error
}
