// Package view renders server-side HTML pages from explicit view models.
package view

import (
	"embed"
	"html/template"
	"io"

	"github.com/shopspring/decimal"

	"pokerroom/internal/models/modeldto"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"chips": Chips,
	"money": Money,
	"fixed": Fixed,
}).ParseFS(templatesFS, "templates/*.html"))

// Chips renders a currency amount in chips, one chip being 1/100 of a
// currency unit, formatted to two decimal places.
func Chips(amount decimal.Decimal) string {
	return amount.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

// Money renders a raw currency amount.
func Money(amount decimal.Decimal) string {
	return amount.String()
}

// Fixed renders a currency amount to two decimal places.
func Fixed(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// LinkBuilder supplies the URLs the account page links to. Both builders are
// opaque to the renderer.
type LinkBuilder interface {
	DepositURL() string
	ConvertURL(currencySerial int64) string
}

type accountPage struct {
	User  *modeldto.Account
	Links LinkBuilder
}

// RenderAccount writes the account page for a populated view model. Empty
// collections degrade to empty sections, never errors.
func RenderAccount(w io.Writer, user *modeldto.Account, links LinkBuilder) error {
	return templates.ExecuteTemplate(w, "account.html", &accountPage{User: user, Links: links})
}
