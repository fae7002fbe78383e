package storage

import (
	"context"

	"pokerroom/internal/models/modeldto"
	"pokerroom/internal/models/modelqueue"
	"pokerroom/internal/models/modelstorage"
)

type Register interface {
	AddNewUser(ctx context.Context, user modeldto.User, userID string) error
	CheckUser(ctx context.Context, credentials modeldto.User) (string, error)
}

type Accountant interface {
	GetProfile(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error)
	GetBalances(ctx context.Context, userID string) ([]modelstorage.BalanceStorageEntry, error)
	GetDeposits(ctx context.Context, userID string) ([]modelstorage.DepositStorageEntry, error)
	GetWithdrawals(ctx context.Context, userID string) ([]modelstorage.WithdrawalStorageEntry, error)
}

type Cashier interface {
	AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit) error
	AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error
	ConvertPoints(ctx context.Context, userID string, currencySerial int64) error
}

type Dealer interface {
	AddNewHand(ctx context.Context, handSerial int64) error
	RecordParticipation(ctx context.Context, userSerial, handSerial int64) error
	GetHands(ctx context.Context, userID string) ([]modelstorage.HandStorageEntry, error)
	SendToQueue(entry modelqueue.HandQueueEntry)
}

type Storage interface {
	Register
	Accountant
	Cashier
	Dealer
}
