package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/pkg/errors"
)

type line struct {
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type document struct {
	Email  string          `json:"email" validate:"omitempty,email"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Status string          `json:"status" validate:"omitempty,oneof=pending paid"`
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Lines  []line          `json:"lines" validate:"required,min=1,dive"`
}

func validDocument() document {
	return document{
		Amount: decimal.RequireFromString("12.50"),
		Date:   "2026-10-16",
		Lines:  []line{{Name: "Servis", Quantity: 1, Price: decimal.RequireFromString("12.50")}},
	}
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	e := errors.As(err)
	require.NotNil(t, e)
	assert.Equal(t, errors.ErrCodeInvalidInput, e.Code)
	d, ok := e.Details.(map[string]string)
	require.True(t, ok)
	return d
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(validDocument()))

	doc := validDocument()
	doc.Amount = decimal.Zero
	d := details(t, Struct(doc))
	assert.Contains(t, d, "amount")

	doc = validDocument()
	doc.Amount = decimal.RequireFromString("-1")
	d = details(t, Struct(doc))
	assert.Equal(t, "mora biti veće od 0", d["amount"])

	doc = validDocument()
	doc.Lines[0].Quantity = 0
	doc.Lines[0].Price = decimal.RequireFromString("-0.01")
	d = details(t, Struct(doc))
	assert.Contains(t, d, "lines[0].quantity")
	assert.Contains(t, d, "lines[0].price")

	doc = validDocument()
	doc.Lines = nil
	doc.Date = "16.10.2026."
	doc.Status = "unknown"
	doc.Email = "nije-email"
	err := Struct(doc)
	d = details(t, err)
	assert.Equal(t, "obavezno polje", d["lines"])
	assert.Equal(t, "neispravan datum (GGGG-MM-DD)", d["date"])
	assert.Equal(t, "neispravna e-mail adresa", d["email"])
	assert.Contains(t, d["status"], "pending paid")
	assert.Equal(t, msgMissingFields, errors.As(err).Message)
}

func TestDecode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"22","date":"2026-10-16","lines":[{"name":"Ulje","quantity":2,"price":"11"}]}`))
	var doc document
	require.NoError(t, Decode(req, &doc))
	assert.True(t, doc.Amount.Equal(decimal.NewFromInt(22)))
	require.Len(t, doc.Lines, 1)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	err := Decode(req, &doc)
	e := errors.As(err)
	require.NotNil(t, e)
	assert.Equal(t, msgInvalidBody, e.Message)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"5"}`))
	var partial document
	require.NoError(t, DecodeJSON(req, &partial), "DecodeJSON does not validate")
	assert.Error(t, Struct(partial))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
	assert.True(t, IsEmail("ana@example.com"))
	assert.False(t, IsEmail("ana@"))
	assert.False(t, IsEmail(""))
}
