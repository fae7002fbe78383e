// Package handlers provides API endpoint handling functionality.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	handlersErrors "pokerroom/internal/api/rest/errors"
	"pokerroom/internal/config"
	"pokerroom/internal/models/modeldto"
	processor "pokerroom/internal/service/processor/v1"
	serviceErrors "pokerroom/internal/service/processor/v1/errors"
	storageErrors "pokerroom/internal/storage/v1/errors"
	"pokerroom/internal/view"
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	service      processor.Processor
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(mainService processor.Processor, serverConfig *config.ServerConfig, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	return &Handler{service: mainService, serverConfig: serverConfig, log: log}, nil
}

// accountLinks builds the URLs the account page links to.
type accountLinks struct{}

func (accountLinks) DepositURL() string {
	return "/deposit"
}

func (accountLinks) ConvertURL(currencySerial int64) string {
	return fmt.Sprintf("/points/convert?currency=%v", currencySerial)
}

// HandleRegister processes user register requests.
func (h *Handler) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
			return
		}
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var user modeldto.User
		err = json.Unmarshal(b, &user)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new user register request detected for %s", user.Login))
		if len(user.Login) == 0 || len(user.Password) == 0 {
			h.log.Error().Msg("HandleRegister failed")
			http.Error(w, "Empty values are not allowed", http.StatusBadRequest)
			return
		}
		accessToken, err := h.service.AddNewUser(ctx, user)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var alreadyExistsError *storageErrors.AlreadyExistsError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &alreadyExistsError) {
				w.WriteHeader(http.StatusConflict)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Authorization", "Bearer "+accessToken)
		w.WriteHeader(http.StatusOK)
	}
}

// HandleLogin processes user login requests.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
			return
		}
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var credentials modeldto.User
		err = json.Unmarshal(b, &credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new login request detected for %s", credentials.Login))
		if credentials.Login == "" || credentials.Password == "" {
			h.log.Error().Msg("HandleLogin failed")
			http.Error(w, "Empty values are not allowed", http.StatusBadRequest)
			return
		}
		accessToken, err := h.service.LoginUser(ctx, credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var notFoundError *storageErrors.NotFoundError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &notFoundError) {
				w.WriteHeader(http.StatusUnauthorized)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Authorization", "Bearer "+accessToken)
		w.WriteHeader(http.StatusOK)
	}
}

// HandleAccountPage renders the HTML account page for the authenticated user.
func (h *Handler) HandleAccountPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleAccountPage failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		account, err := h.service.GetAccount(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleAccountPage failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var notFoundError *storageErrors.NotFoundError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &notFoundError) {
				http.Error(w, err.Error(), http.StatusNotFound)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		err = view.RenderAccount(w, account, accountLinks{})
		if err != nil {
			h.log.Error().Err(err).Msg("HandleAccountPage failed")
		}
	}
}

// HandleGetBalance processes balance query requests.
func (h *Handler) HandleGetBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetBalance failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		balances, err := h.service.GetBalances(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetBalance failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, balances)
	}
}

// HandleGetDeposits processes deposit history query requests.
func (h *Handler) HandleGetDeposits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetDeposits failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		deposits, err := h.service.GetDeposits(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetDeposits failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(deposits) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeJSON(w, deposits)
	}
}

// HandleNewDeposit processes new deposit requests.
func (h *Handler) HandleNewDeposit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewDeposit failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
			return
		}
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewDeposit failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var newDeposit modeldto.NewDeposit
		err = json.Unmarshal(b, &newDeposit)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewDeposit failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new deposit request detected for reference %s", newDeposit.Reference))
		err = h.service.AddNewDeposit(ctx, userID, newDeposit)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewDeposit failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var alreadyExistsError *storageErrors.AlreadyExistsError
			var foreignKeyError *storageErrors.ForeignKeyError
			var serviceIllegalReference *serviceErrors.ServiceIllegalReference
			var serviceIllegalAmount *serviceErrors.ServiceIllegalAmount
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &serviceIllegalReference) || errors.As(err, &serviceIllegalAmount) || errors.As(err, &foreignKeyError) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			} else if errors.As(err, &alreadyExistsError) {
				w.WriteHeader(http.StatusConflict)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleNewWithdrawal processes new withdrawal requests.
func (h *Handler) HandleNewWithdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewWithdrawal failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
			return
		}
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewWithdrawal failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var newWithdrawal modeldto.NewWithdrawal
		err = json.Unmarshal(b, &newWithdrawal)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewWithdrawal failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new withdrawal request detected for %v", newWithdrawal.Dest))
		err = h.service.AddNewWithdrawal(ctx, userID, newWithdrawal)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewWithdrawal failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var foreignKeyError *storageErrors.ForeignKeyError
			var notEnoughFundsError *storageErrors.NotEnoughFundsError
			var serviceIllegalAmount *serviceErrors.ServiceIllegalAmount
			var serviceNotEnoughFunds *serviceErrors.ServiceNotEnoughFunds
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &serviceIllegalAmount) || errors.As(err, &foreignKeyError) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			} else if errors.As(err, &serviceNotEnoughFunds) || errors.As(err, &notEnoughFundsError) {
				http.Error(w, err.Error(), http.StatusPaymentRequired)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleGetWithdrawals processes withdrawals query requests.
func (h *Handler) HandleGetWithdrawals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetWithdrawals failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		withdrawals, err := h.service.GetWithdrawals(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetWithdrawals failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(withdrawals) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeJSON(w, withdrawals)
	}
}

// HandleConvertPoints processes bonus points conversion requests.
func (h *Handler) HandleConvertPoints() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleConvertPoints failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		currencySerial, err := strconv.ParseInt(r.URL.Query().Get("currency"), 10, 64)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleConvertPoints failed")
			http.Error(w, "Invalid currency serial", http.StatusBadRequest)
			return
		}
		h.log.Info().Msg(fmt.Sprintf("points conversion request detected for currency %v", currencySerial))
		err = h.service.ConvertPoints(ctx, userID, currencySerial)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleConvertPoints failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleNewHand processes hand registration requests.
func (h *Handler) HandleNewHand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewHand failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Content-Type") != "text/plain" {
			http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
			return
		}
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewHand failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		handSerial := strings.TrimSpace(string(b))
		h.log.Info().Msg(fmt.Sprintf("new hand request detected for hand %s", handSerial))
		err = h.service.AddNewHand(ctx, userID, handSerial)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewHand failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var alreadyExistsError *storageErrors.AlreadyExistsError
			var foreignKeyError *storageErrors.ForeignKeyError
			var serviceIllegalHandSerial *serviceErrors.ServiceIllegalHandSerial
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &serviceIllegalHandSerial) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			} else if errors.As(err, &alreadyExistsError) {
				// the caller is already linked to this hand
				w.WriteHeader(http.StatusOK)
			} else if errors.As(err, &foreignKeyError) {
				w.WriteHeader(http.StatusConflict)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// HandleGetHands processes hand participation query requests.
func (h *Handler) HandleGetHands() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		userID, err := h.getUserID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetHands failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hands, err := h.service.GetHands(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetHands failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(hands) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeJSON(w, hands)
	}
}

// writeJSON marshals a payload and writes it with a JSON content type.
func (h *Handler) writeJSON(w http.ResponseWriter, payload interface{}) {
	resBody, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("response marshalling failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(resBody)
	if err != nil {
		h.log.Error().Err(err).Msg("response writing failed")
	}
}

// getUserID retrieves user identifier from the request metadata.
func (h *Handler) getUserID(r *http.Request) (string, error) {
	accessToken := r.Header.Get("Authorization")
	if len(accessToken) == 0 {
		return "", errors.New("token authorization required")
	}
	accessToken = strings.Replace(accessToken, "Bearer ", "", 1)
	userID, err := h.service.GetUserID(accessToken)
	if err != nil {
		return "", err
	}
	return userID, nil
}
