// Package modeldto provides types for data interchange between the API and service layers.

package modeldto

import "github.com/shopspring/decimal"

type (
	// User carries registration and login payloads. Profile fields are optional on login.
	User struct {
		Login            string `json:"login"`
		Password         string `json:"password"`
		Name             string `json:"name,omitempty"`
		Email            string `json:"email,omitempty"`
		EmergencyAddress string `json:"emergency_address,omitempty"`
	}
	Currency struct {
		Serial int64  `json:"serial"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	Balance struct {
		Currency Currency        `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
		Points   decimal.Decimal `json:"points"`
	}
	Deposit struct {
		DepositID int64           `json:"deposit_id"`
		Currency  Currency        `json:"currency"`
		Amount    decimal.Decimal `json:"amount"`
		CreatedAt string          `json:"created_at"`
	}
	Withdrawal struct {
		ID          int64           `json:"id"`
		Currency    Currency        `json:"currency"`
		Amount      decimal.Decimal `json:"amount"`
		Dest        string          `json:"dest"`
		CreatedAt   string          `json:"created_at"`
		ProcessedAt string          `json:"processed_at,omitempty"`
	}
	Hand struct {
		Serial    int64  `json:"serial"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	// Account is the fully assembled view model for the account page.
	Account struct {
		Serial           int64
		Name             string
		Email            string
		EmergencyAddress string
		Balances         []Balance
		Deposits         []Deposit
		Withdrawals      []Withdrawal
	}
	NewDeposit struct {
		Reference      string          `json:"reference"`
		Amount         decimal.Decimal `json:"amount"`
		CurrencySerial int64           `json:"currency"`
	}
	NewWithdrawal struct {
		Amount         decimal.Decimal `json:"amount"`
		CurrencySerial int64           `json:"currency"`
		Dest           string          `json:"dest"`
	}
	// HandFeedResult is the hand feed service response body.
	HandFeedResult struct {
		Hand         int64                 `json:"hand"`
		Status       string                `json:"status"`
		Participants []HandFeedParticipant `json:"participants,omitempty"`
	}
	// HandFeedParticipant reports one player's resolved pot delta in chips.
	HandFeedParticipant struct {
		User int64           `json:"user"`
		Pot  decimal.Decimal `json:"pot"`
	}
)
