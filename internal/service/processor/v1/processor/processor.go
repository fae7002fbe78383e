// Package processor provides intermediary layer functionality between the DB and API endpoint handlers.

package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/shopspring/decimal"

	"pokerroom/internal/models/modeldto"
	"pokerroom/internal/models/modelhand"
	"pokerroom/internal/models/modelqueue"
	"pokerroom/internal/models/modelstorage"
	serviceErrors "pokerroom/internal/service/processor/v1/errors"
	secretary "pokerroom/internal/service/secretary/v1"
	storage "pokerroom/internal/storage/v1"
	storageErrors "pokerroom/internal/storage/v1/errors"
)

// Processor defines attributes of a struct available to its methods.
type Processor struct {
	storage   storage.Storage
	secretary secretary.Secretary
}

// InitService initializes an intermediary service for data processing.
func InitService(st storage.Storage, sec secretary.Secretary) (*Processor, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	processor := &Processor{
		storage:   st,
		secretary: sec,
	}
	return processor, nil
}

// GetUserID retrieves deciphered user identifier from token.
func (proc *Processor) GetUserID(accessToken string) (string, error) {
	return proc.secretary.ValidateToken(accessToken)
}

// AddNewUser processes user register requests.
func (proc *Processor) AddNewUser(ctx context.Context, user modeldto.User) (string, error) {
	accessToken, userID, err := proc.secretary.NewToken()
	if err != nil {
		return "", err
	}
	cipheredUser := modeldto.User{
		Login:            proc.secretary.Encode(user.Login),
		Password:         proc.secretary.Encode(user.Password),
		Name:             user.Name,
		Email:            user.Email,
		EmergencyAddress: user.EmergencyAddress,
	}
	err = proc.storage.AddNewUser(ctx, cipheredUser, userID)
	if err != nil {
		return "", err
	}
	return accessToken, nil
}

// LoginUser processes user login requests.
func (proc *Processor) LoginUser(ctx context.Context, credentials modeldto.User) (string, error) {
	cipheredCredentials := modeldto.User{
		Login:    proc.secretary.Encode(credentials.Login),
		Password: proc.secretary.Encode(credentials.Password),
	}
	userID, err := proc.storage.CheckUser(ctx, cipheredCredentials)
	if err != nil {
		return "", err
	}
	return proc.secretary.GetTokenForUser(userID)
}

// GetAccount assembles the full account page view model for a user.
func (proc *Processor) GetAccount(ctx context.Context, userID string) (*modeldto.Account, error) {
	profile, err := proc.storage.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	balances, err := proc.GetBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	deposits, err := proc.GetDeposits(ctx, userID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := proc.GetWithdrawals(ctx, userID)
	if err != nil {
		return nil, err
	}
	account := modeldto.Account{
		Serial:           profile.Serial,
		Name:             profile.Name,
		Email:            profile.Email,
		EmergencyAddress: profile.EmergencyAddress,
		Balances:         balances,
		Deposits:         deposits,
		Withdrawals:      withdrawals,
	}
	return &account, nil
}

// GetBalances processes balance query requests.
func (proc *Processor) GetBalances(ctx context.Context, userID string) ([]modeldto.Balance, error) {
	balances, err := proc.storage.GetBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	var responseBalances []modeldto.Balance
	for _, balance := range balances {
		responseBalance := modeldto.Balance{
			Currency: modeldto.Currency{
				Serial: balance.CurrencySerial,
				Symbol: balance.CurrencySymbol,
				Name:   balance.CurrencyName,
			},
			Amount: balance.Amount,
			Points: balance.Points,
		}
		responseBalances = append(responseBalances, responseBalance)
	}
	return responseBalances, nil
}

// GetDeposits processes deposit history query requests.
func (proc *Processor) GetDeposits(ctx context.Context, userID string) ([]modeldto.Deposit, error) {
	deposits, err := proc.storage.GetDeposits(ctx, userID)
	if err != nil {
		return nil, err
	}
	var responseDeposits []modeldto.Deposit
	for _, deposit := range deposits {
		responseDeposit := modeldto.Deposit{
			DepositID: deposit.DepositID,
			Currency: modeldto.Currency{
				Serial: deposit.CurrencySerial,
				Symbol: deposit.CurrencySymbol,
				Name:   deposit.CurrencyName,
			},
			Amount:    deposit.Amount,
			CreatedAt: deposit.CreatedAt.Format(time.RFC3339),
		}
		responseDeposits = append(responseDeposits, responseDeposit)
	}
	return responseDeposits, nil
}

// GetWithdrawals processes withdrawal history query requests. Unprocessed
// withdrawals carry an empty ProcessedAt.
func (proc *Processor) GetWithdrawals(ctx context.Context, userID string) ([]modeldto.Withdrawal, error) {
	withdrawals, err := proc.storage.GetWithdrawals(ctx, userID)
	if err != nil {
		return nil, err
	}
	var responseWithdrawals []modeldto.Withdrawal
	for _, withdrawal := range withdrawals {
		responseWithdrawal := modeldto.Withdrawal{
			ID: withdrawal.ID,
			Currency: modeldto.Currency{
				Serial: withdrawal.CurrencySerial,
				Symbol: withdrawal.CurrencySymbol,
				Name:   withdrawal.CurrencyName,
			},
			Amount:    withdrawal.Amount,
			Dest:      withdrawal.Dest,
			CreatedAt: withdrawal.CreatedAt.Format(time.RFC3339),
		}
		if withdrawal.ProcessedAt.Valid {
			responseWithdrawal.ProcessedAt = withdrawal.ProcessedAt.Time.Format(time.RFC3339)
		}
		responseWithdrawals = append(responseWithdrawals, responseWithdrawal)
	}
	return responseWithdrawals, nil
}

// GetHands processes hand participation query requests.
func (proc *Processor) GetHands(ctx context.Context, userID string) ([]modeldto.Hand, error) {
	hands, err := proc.storage.GetHands(ctx, userID)
	if err != nil {
		return nil, err
	}
	var responseHands []modeldto.Hand
	for _, hand := range hands {
		responseHand := modeldto.Hand{
			Serial:    hand.Serial,
			Status:    hand.Status,
			CreatedAt: hand.CreatedAt.Format(time.RFC3339),
		}
		responseHands = append(responseHands, responseHand)
	}
	return responseHands, nil
}

// AddNewDeposit processes new deposit requests.
func (proc *Processor) AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit) error {
	err := goluhn.Validate(deposit.Reference)
	if err != nil {
		return &serviceErrors.ServiceIllegalReference{Msg: fmt.Sprintf("illegal deposit reference %s", deposit.Reference)}
	}
	if !deposit.Amount.IsPositive() {
		return &serviceErrors.ServiceIllegalAmount{Msg: fmt.Sprintf("illegal deposit amount %s", deposit.Amount)}
	}
	return proc.storage.AddNewDeposit(ctx, userID, deposit)
}

// AddNewWithdrawal processes new withdrawal requests.
func (proc *Processor) AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error {
	if !withdrawal.Amount.IsPositive() {
		return &serviceErrors.ServiceIllegalAmount{Msg: fmt.Sprintf("illegal withdrawal amount %s", withdrawal.Amount)}
	}
	currentAmount, err := proc.currencyAmount(ctx, userID, withdrawal.CurrencySerial)
	if err != nil {
		return err
	}
	if currentAmount.LessThan(withdrawal.Amount) {
		return &serviceErrors.ServiceNotEnoughFunds{Msg: fmt.Sprintf("not enough funds are available, present - %s, required - %s", currentAmount, withdrawal.Amount)}
	}
	return proc.storage.AddNewWithdrawal(ctx, userID, withdrawal)
}

// ConvertPoints processes bonus points conversion requests.
func (proc *Processor) ConvertPoints(ctx context.Context, userID string, currencySerial int64) error {
	return proc.storage.ConvertPoints(ctx, userID, currencySerial)
}

// AddNewHand processes hand registration requests: the hand is stored, the
// caller's participation is recorded and the hand is queued for result polling.
// Re-registering a tracked hand only records the missing participation.
func (proc *Processor) AddNewHand(ctx context.Context, userID, handSerial string) error {
	handSerialInt, err := strconv.ParseInt(handSerial, 10, 64)
	if err != nil {
		return &serviceErrors.ServiceIllegalHandSerial{Msg: fmt.Sprintf("illegal hand serial %s", handSerial)}
	}
	profile, err := proc.storage.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	handKnown := false
	err = proc.storage.AddNewHand(ctx, handSerialInt)
	if err != nil {
		var alreadyExistsError *storageErrors.AlreadyExistsError
		if !errors.As(err, &alreadyExistsError) {
			return err
		}
		handKnown = true
	}
	err = proc.storage.RecordParticipation(ctx, profile.Serial, handSerialInt)
	if err != nil {
		return err
	}
	if !handKnown {
		proc.storage.SendToQueue(modelqueue.HandQueueEntry{
			HandSerial: handSerialInt,
			HandStatus: modelhand.StatusNew,
		})
	}
	return nil
}

// currencyAmount finds the user's balance amount in one currency.
func (proc *Processor) currencyAmount(ctx context.Context, userID string, currencySerial int64) (decimal.Decimal, error) {
	balances, err := proc.storage.GetBalances(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	var entry *modelstorage.BalanceStorageEntry
	for i := range balances {
		if balances[i].CurrencySerial == currencySerial {
			entry = &balances[i]
			break
		}
	}
	if entry == nil {
		return decimal.Zero, nil
	}
	return entry.Amount, nil
}
