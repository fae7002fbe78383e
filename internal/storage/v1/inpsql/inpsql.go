// Package inpsql implements the storage interface over a PSQL DB.
package inpsql

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pokerroom/internal/config"
	"pokerroom/internal/models/modeldto"
	"pokerroom/internal/models/modelhand"
	"pokerroom/internal/models/modelqueue"
	"pokerroom/internal/models/modelstorage"
	storageErrors "pokerroom/internal/storage/v1/errors"
)

// DefaultCurrencySerial identifies the room currency seeded at bootstrap;
// hand feed pot deltas are settled against it.
const DefaultCurrencySerial int64 = 1

type Storage struct {
	mu       sync.Mutex
	Cfg      *config.StorageConfig
	DB       *sql.DB
	QueueIn  chan modelqueue.HandQueueEntry
	QueueOut chan modelqueue.HandResultEntry
	log      *zerolog.Logger
}

// InitStorage establishes a PSQL connection, bootstraps the schema and starts
// the hand settlement listener which drains QueueOut until the broker closes it.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger, wg *sync.WaitGroup) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	st := Storage{
		Cfg:      cfg,
		DB:       db,
		QueueIn:  make(chan modelqueue.HandQueueEntry, 100),
		QueueOut: make(chan modelqueue.HandResultEntry, 100),
		log:      log,
	}
	err = st.createTables(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	log.Info().Msg("PSQL DB connection was established")
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range st.QueueOut {
			err := st.settleHand(entry)
			if err != nil {
				st.log.Error().Err(err).Msg(fmt.Sprintf("settling hand %v failed", entry.HandSerial))
			}
		}
		err := st.DB.Close()
		if err != nil {
			st.log.Error().Err(err).Msg("closing PSQL DB connection failed")
		}
		st.log.Info().Msg("PSQL DB connection was closed")
	}()
	return &st, nil
}

// SendToQueue submits a hand for result polling.
func (s *Storage) SendToQueue(entry modelqueue.HandQueueEntry) {
	s.QueueIn <- entry
}

// AddNewUser adds a new user with ciphered credentials and opens a zero
// balance in the room currency.
func (s *Storage) AddNewUser(ctx context.Context, user modeldto.User, userID string) error {
	newUserStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO users (user_id, login, password, name, email, emergency_address, registered_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer newUserStmt.Close()
	newBalanceStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO balances (user_id, currency_serial, amount, points) VALUES ($1, $2, 0, 0)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer newBalanceStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := newUserStmt.ExecContext(ctx, userID, user.Login, user.Password, user.Name, user.Email, user.EmergencyAddress, time.Now())
		if err != nil {
			chanEr <- mapPSQLError(err, user.Login)
			return
		}
		_, err = newBalanceStmt.ExecContext(ctx, userID, DefaultCurrencySerial)
		if err != nil {
			chanEr <- mapPSQLError(err, user.Login)
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("adding new user failed for %s", user.Login))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("adding new user failed for %s", user.Login))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("adding new user done for %s", user.Login))
		return nil
	}
}

// CheckUser authenticates ciphered credentials and returns the user identifier.
func (s *Storage) CheckUser(ctx context.Context, credentials modeldto.User) (string, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT user_id, password FROM users WHERE login = $1")
	if err != nil {
		return "", &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan string)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var userID, password string
		err := selectStmt.QueryRowContext(ctx, credentials.Login).Scan(&userID, &password)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err}
				return
			default:
				chanEr <- err
				return
			}
		}
		passwordHash := sha256.Sum256([]byte(credentials.Password))
		expectedPasswordHash := sha256.Sum256([]byte(password))
		passwordMatch := subtle.ConstantTimeCompare(passwordHash[:], expectedPasswordHash[:]) == 1
		if !passwordMatch {
			chanEr <- &storageErrors.NotFoundError{Err: nil}
			return
		}
		chanOk <- userID
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("user authentication failed")
		return "", &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("user authentication failed")
		return "", methodErr
	case userID := <-chanOk:
		s.log.Info().Msg("user authentication done")
		return userID, nil
	}
}

// GetProfile retrieves the account profile fields for a user.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT user_id, serial, name, email, emergency_address, registered_at FROM users WHERE user_id = $1")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan *modelstorage.UserStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var queryOutput modelstorage.UserStorageEntry
		err := selectStmt.QueryRowContext(ctx, userID).Scan(&queryOutput.UserID, &queryOutput.Serial, &queryOutput.Name, &queryOutput.Email, &queryOutput.EmergencyAddress, &queryOutput.RegisteredAt)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err}
				return
			default:
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
		}
		chanOk <- &queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting user profile failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting user profile failed")
		return nil, methodErr
	case profile := <-chanOk:
		s.log.Info().Msg("getting user profile done")
		return profile, nil
	}
}

// GetBalances retrieves all currency balances of a user.
func (s *Storage) GetBalances(ctx context.Context, userID string) ([]modelstorage.BalanceStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT b.user_id, b.currency_serial, c.symbol, c.name, b.amount, b.points FROM balances b JOIN currencies c ON c.serial = b.currency_serial WHERE b.user_id = $1 ORDER BY b.currency_serial")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.BalanceStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, userID)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.BalanceStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.BalanceStorageEntry
			err = rows.Scan(&queryOutputRow.UserID, &queryOutputRow.CurrencySerial, &queryOutputRow.CurrencySymbol, &queryOutputRow.CurrencyName, &queryOutputRow.Amount, &queryOutputRow.Points)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting balances failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting balances failed")
		return nil, methodErr
	case balances := <-chanOk:
		s.log.Info().Msg("getting balances done")
		return balances, nil
	}
}

// GetDeposits retrieves the deposit history of a user.
func (s *Storage) GetDeposits(ctx context.Context, userID string) ([]modelstorage.DepositStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT d.deposit_id, d.user_id, d.currency_serial, c.symbol, c.name, d.reference, d.amount, d.created_at FROM deposits d JOIN currencies c ON c.serial = d.currency_serial WHERE d.user_id = $1 ORDER BY d.created_at")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.DepositStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, userID)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.DepositStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.DepositStorageEntry
			err = rows.Scan(&queryOutputRow.DepositID, &queryOutputRow.UserID, &queryOutputRow.CurrencySerial, &queryOutputRow.CurrencySymbol, &queryOutputRow.CurrencyName, &queryOutputRow.Reference, &queryOutputRow.Amount, &queryOutputRow.CreatedAt)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting deposits failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting deposits failed")
		return nil, methodErr
	case deposits := <-chanOk:
		s.log.Info().Msg("getting deposits done")
		return deposits, nil
	}
}

// GetWithdrawals retrieves the withdrawal history of a user. Unprocessed
// withdrawals carry an invalid ProcessedAt.
func (s *Storage) GetWithdrawals(ctx context.Context, userID string) ([]modelstorage.WithdrawalStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT w.id, w.user_id, w.currency_serial, c.symbol, c.name, w.amount, w.dest, w.created_at, w.processed_at FROM withdrawals w JOIN currencies c ON c.serial = w.currency_serial WHERE w.user_id = $1 ORDER BY w.created_at")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.WithdrawalStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, userID)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.WithdrawalStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.WithdrawalStorageEntry
			err = rows.Scan(&queryOutputRow.ID, &queryOutputRow.UserID, &queryOutputRow.CurrencySerial, &queryOutputRow.CurrencySymbol, &queryOutputRow.CurrencyName, &queryOutputRow.Amount, &queryOutputRow.Dest, &queryOutputRow.CreatedAt, &queryOutputRow.ProcessedAt)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting withdrawals failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting withdrawals failed")
		return nil, methodErr
	case withdrawals := <-chanOk:
		s.log.Info().Msg("getting withdrawals done")
		return withdrawals, nil
	}
}

// AddNewDeposit records a deposit and credits the balance in one transaction.
func (s *Storage) AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit) error {
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer tx.Rollback()
		_, err = tx.ExecContext(ctx, "INSERT INTO deposits (user_id, currency_serial, reference, amount, created_at) VALUES ($1, $2, $3, $4, $5)", userID, deposit.CurrencySerial, deposit.Reference, deposit.Amount, time.Now())
		if err != nil {
			chanEr <- mapPSQLError(err, deposit.Reference)
			return
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO balances (user_id, currency_serial, amount, points) VALUES ($1, $2, $3, 0) ON CONFLICT (user_id, currency_serial) DO UPDATE SET amount = balances.amount + EXCLUDED.amount", userID, deposit.CurrencySerial, deposit.Amount)
		if err != nil {
			chanEr <- mapPSQLError(err, deposit.Reference)
			return
		}
		err = tx.Commit()
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("adding deposit failed for reference %s", deposit.Reference))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("adding deposit failed for reference %s", deposit.Reference))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("adding deposit done for reference %s", deposit.Reference))
		return nil
	}
}

// AddNewWithdrawal debits the balance and records an unprocessed withdrawal in
// one transaction. The debit is guarded against overdraft.
func (s *Storage) AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error {
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer tx.Rollback()
		res, err := tx.ExecContext(ctx, "UPDATE balances SET amount = amount - $3 WHERE user_id = $1 AND currency_serial = $2 AND amount >= $3", userID, withdrawal.CurrencySerial, withdrawal.Amount)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		nRows, err := res.RowsAffected()
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		if nRows == 0 {
			chanEr <- &storageErrors.NotEnoughFundsError{ID: userID}
			return
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO withdrawals (user_id, currency_serial, amount, dest, created_at, processed_at) VALUES ($1, $2, $3, $4, $5, NULL)", userID, withdrawal.CurrencySerial, withdrawal.Amount, withdrawal.Dest, time.Now())
		if err != nil {
			chanEr <- mapPSQLError(err, userID)
			return
		}
		err = tx.Commit()
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("adding withdrawal failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("adding withdrawal failed")
		return methodErr
	case <-chanOk:
		s.log.Info().Msg("adding withdrawal done")
		return nil
	}
}

// ConvertPoints moves the whole bonus points balance into the currency amount.
// Points are denominated in chips, one chip being 1/100 of a currency unit.
func (s *Storage) ConvertPoints(ctx context.Context, userID string, currencySerial int64) error {
	updateStmt, err := s.DB.PrepareContext(ctx, "UPDATE balances SET amount = amount + points / 100, points = 0 WHERE user_id = $1 AND currency_serial = $2 AND points > 0")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer updateStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := updateStmt.ExecContext(ctx, userID, currencySerial)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("converting points failed")
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("converting points failed")
		return methodErr
	case <-chanOk:
		s.log.Info().Msg("converting points done")
		return nil
	}
}

// AddNewHand registers a hand serial for tracking.
func (s *Storage) AddNewHand(ctx context.Context, handSerial int64) error {
	newHandStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO hands (serial, status, created_at) VALUES ($1, $2, $3)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer newHandStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := newHandStmt.ExecContext(ctx, handSerial, modelhand.StatusNew, time.Now())
		if err != nil {
			chanEr <- mapPSQLError(err, fmt.Sprint(handSerial))
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("adding hand %v failed", handSerial))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("adding hand %v failed", handSerial))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("adding hand %v done", handSerial))
		return nil
	}
}

// RecordParticipation links a user to a hand. A duplicate pair surfaces as
// AlreadyExistsError, a serial without a parent row as ForeignKeyError.
func (s *Storage) RecordParticipation(ctx context.Context, userSerial, handSerial int64) error {
	newParticipationStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO user2hand (user_serial, hand_serial) VALUES ($1, $2)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer newParticipationStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		participation := modelhand.Participation{UserSerial: userSerial, HandSerial: handSerial}
		_, err := newParticipationStmt.ExecContext(ctx, participation.UserSerial, participation.HandSerial)
		if err != nil {
			chanEr <- mapPSQLError(err, fmt.Sprintf("%v:%v", userSerial, handSerial))
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("recording participation failed for user %v, hand %v", userSerial, handSerial))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("recording participation failed for user %v, hand %v", userSerial, handSerial))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("recording participation done for user %v, hand %v", userSerial, handSerial))
		return nil
	}
}

// GetHands retrieves all hands a user participated in.
func (s *Storage) GetHands(ctx context.Context, userID string) ([]modelstorage.HandStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT h.serial, h.status, h.created_at FROM hands h JOIN user2hand uh ON uh.hand_serial = h.serial JOIN users u ON u.serial = uh.user_serial WHERE u.user_id = $1 ORDER BY h.created_at")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.HandStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, userID)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.HandStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.HandStorageEntry
			err = rows.Scan(&queryOutputRow.Serial, &queryOutputRow.Status, &queryOutputRow.CreatedAt)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting hands failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting hands failed")
		return nil, methodErr
	case hands := <-chanOk:
		s.log.Info().Msg("getting hands done")
		return hands, nil
	}
}

// settleHand applies a final hand feed result: the hand status is updated and,
// for finished hands, every participant is linked to the hand and credited
// with their pot delta converted from chips to currency units. Participation
// inserts are idempotent here since the feed may replay results.
func (s *Storage) settleHand(entry modelqueue.HandResultEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, "UPDATE hands SET status = $2 WHERE serial = $1", entry.HandSerial, entry.HandStatus)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if entry.HandStatus == modelhand.StatusFinished {
		for _, participant := range entry.Participants {
			_, err = tx.ExecContext(ctx, "INSERT INTO user2hand (user_serial, hand_serial) VALUES ($1, $2) ON CONFLICT (user_serial, hand_serial) DO NOTHING", participant.UserSerial, entry.HandSerial)
			if err != nil {
				return mapPSQLError(err, fmt.Sprintf("%v:%v", participant.UserSerial, entry.HandSerial))
			}
			amount := participant.Pot.Div(decimal.NewFromInt(100))
			_, err = tx.ExecContext(ctx, "UPDATE balances b SET amount = b.amount + $3 FROM users u WHERE b.user_id = u.user_id AND u.serial = $1 AND b.currency_serial = $2", participant.UserSerial, DefaultCurrencySerial, amount)
			if err != nil {
				return &storageErrors.ExecutionPSQLError{Err: err}
			}
		}
	}
	err = tx.Commit()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	s.log.Info().Msg(fmt.Sprintf("settling hand %v done with status %s", entry.HandSerial, entry.HandStatus))
	return nil
}

// mapPSQLError translates PSQL constraint violations into typed storage errors.
func mapPSQLError(err error, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &storageErrors.AlreadyExistsError{Err: err, ID: id}
		case pgerrcode.ForeignKeyViolation:
			return &storageErrors.ForeignKeyError{Err: err, ID: id}
		}
	}
	return &storageErrors.ExecutionPSQLError{Err: err}
}

func (s *Storage) createTables(ctx context.Context) error {
	var queries []string
	query := `CREATE TABLE IF NOT EXISTS users (
		id                BIGSERIAL   NOT NULL,
		user_id           TEXT        NOT NULL UNIQUE,
		serial            BIGSERIAL   NOT NULL UNIQUE,
		login             TEXT        NOT NULL UNIQUE,
		password          TEXT        NOT NULL,
		name              TEXT        NOT NULL DEFAULT '',
		email             TEXT        NOT NULL DEFAULT '',
		emergency_address TEXT        NOT NULL DEFAULT '',
		registered_at     TIMESTAMPTZ NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS currencies (
		serial BIGSERIAL NOT NULL PRIMARY KEY,
		symbol TEXT      NOT NULL,
		name   TEXT      NOT NULL UNIQUE
	);`
	queries = append(queries, query)
	query = `INSERT INTO currencies (symbol, name) VALUES ('m฿', 'mBTC') ON CONFLICT (name) DO NOTHING;`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS balances (
		user_id         TEXT           NOT NULL REFERENCES users (user_id),
		currency_serial BIGINT         NOT NULL REFERENCES currencies (serial),
		amount          NUMERIC(20, 8) NOT NULL DEFAULT 0,
		points          NUMERIC(20, 8) NOT NULL DEFAULT 0,
		UNIQUE (user_id, currency_serial)
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS deposits (
		deposit_id      BIGSERIAL      NOT NULL PRIMARY KEY,
		user_id         TEXT           NOT NULL REFERENCES users (user_id),
		currency_serial BIGINT         NOT NULL REFERENCES currencies (serial),
		reference       TEXT           NOT NULL UNIQUE,
		amount          NUMERIC(20, 8) NOT NULL,
		created_at      TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS withdrawals (
		id              BIGSERIAL      NOT NULL PRIMARY KEY,
		user_id         TEXT           NOT NULL REFERENCES users (user_id),
		currency_serial BIGINT         NOT NULL REFERENCES currencies (serial),
		amount          NUMERIC(20, 8) NOT NULL,
		dest            TEXT           NOT NULL,
		created_at      TIMESTAMPTZ    NOT NULL,
		processed_at    TIMESTAMPTZ    NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS hands (
		serial     BIGINT      NOT NULL PRIMARY KEY,
		status     TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS user2hand (
		user_serial BIGINT NOT NULL REFERENCES users (serial) ON DELETE CASCADE,
		hand_serial BIGINT NOT NULL REFERENCES hands (serial) ON DELETE CASCADE,
		PRIMARY KEY (user_serial, hand_serial)
	);`
	queries = append(queries, query)
	for _, subquery := range queries {
		_, err := s.DB.ExecContext(ctx, subquery)
		if err != nil {
			return err
		}
	}
	return nil
}
