package view

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokerroom/internal/models/modeldto"
)

type testLinks struct{}

func (testLinks) DepositURL() string {
	return "/deposit"
}

func (testLinks) ConvertURL(currencySerial int64) string {
	return fmt.Sprintf("/points/convert?currency=%v", currencySerial)
}

func mBTC() modeldto.Currency {
	return modeldto.Currency{Serial: 1, Symbol: "m฿", Name: "mBTC"}
}

func renderToString(t *testing.T, account *modeldto.Account) string {
	var sb strings.Builder
	err := RenderAccount(&sb, account, testLinks{})
	require.NoError(t, err)
	return sb.String()
}

func TestRenderAccountProfile(t *testing.T) {
	account := &modeldto.Account{
		Serial:           42,
		Name:             "alice",
		Email:            "alice@example.com",
		EmergencyAddress: "1 Main St",
	}
	out := renderToString(t, account)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "1 Main St")
	assert.Contains(t, out, "42")
}

func TestRenderAccountOmitsEmptyBalances(t *testing.T) {
	account := &modeldto.Account{Serial: 1, Name: "bob"}
	out := renderToString(t, account)
	assert.NotContains(t, out, "Your balance(s)")
	// deposit and withdrawal tables render unconditionally
	assert.Contains(t, out, "Deposits")
	assert.Contains(t, out, "Withdrawals")
}

func TestRenderAccountChipsScaling(t *testing.T) {
	account := &modeldto.Account{
		Serial: 1,
		Name:   "bob",
		Balances: []modeldto.Balance{
			{Currency: mBTC(), Amount: decimal.RequireFromString("1.2345"), Points: decimal.Zero},
		},
	}
	out := renderToString(t, account)
	assert.Contains(t, out, "Your balance(s)")
	// chips are the amount times 100 to two decimal places, shown alongside the raw amount
	assert.Contains(t, out, "123.45")
	assert.Contains(t, out, "1.2345")
	assert.Contains(t, out, "m฿")
}

func TestRenderAccountLinks(t *testing.T) {
	account := &modeldto.Account{
		Serial: 1,
		Name:   "bob",
		Balances: []modeldto.Balance{
			{Currency: mBTC(), Amount: decimal.NewFromInt(1), Points: decimal.NewFromInt(250)},
		},
	}
	out := renderToString(t, account)
	assert.Contains(t, out, `href="/deposit"`)
	assert.Contains(t, out, `href="/points/convert?currency=1"`)
	assert.Contains(t, out, "250")
}

func TestRenderAccountEscapesWithdrawalDest(t *testing.T) {
	account := &modeldto.Account{
		Serial: 1,
		Name:   "bob",
		Withdrawals: []modeldto.Withdrawal{
			{ID: 7, Currency: mBTC(), Amount: decimal.NewFromInt(5), Dest: "<script>", CreatedAt: "2024-05-01T10:00:00Z"},
		},
	}
	out := renderToString(t, account)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestRenderAccountUnprocessedWithdrawal(t *testing.T) {
	account := &modeldto.Account{
		Serial: 1,
		Name:   "bob",
		Withdrawals: []modeldto.Withdrawal{
			{ID: 7, Currency: mBTC(), Amount: decimal.NewFromInt(5), Dest: "addr", CreatedAt: "2024-05-01T10:00:00Z", ProcessedAt: ""},
		},
	}
	out := renderToString(t, account)
	// the processed cell renders empty rather than a placeholder
	assert.Contains(t, out, "<td></td>")
}

func TestRenderAccountEmptyTables(t *testing.T) {
	account := &modeldto.Account{Serial: 1, Name: "bob"}
	out := renderToString(t, account)
	assert.Contains(t, out, "<th>Deposit ID</th>")
	assert.Contains(t, out, "<th>Destination</th>")
}

func TestChips(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"integer amount", "1", "100.00"},
		{"fractional amount", "1.2345", "123.45"},
		{"zero", "0", "0.00"},
		{"small fraction", "0.005", "0.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Chips(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1.2345", Money(decimal.RequireFromString("1.2345")))
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "5.00", Fixed(decimal.NewFromInt(5)))
}
