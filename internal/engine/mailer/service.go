package mailer

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog"

	"invostock/internal/engine/contacts"
	"invostock/internal/engine/invoices"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/tenant"
)

var (
	ErrNoContact      = errors.Invalid("Račun nema povezan kontakt")
	ErrNoContactEmail = errors.Invalid("Kontakt nema e-mail adresu")
)

// ContactMessage is a free-form email to one of the tenant's contacts.
type ContactMessage struct {
	ContactID int64  `json:"contact_id" validate:"required,gt=0"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Body      string `json:"body" validate:"required,max=10000"`
}

type Result struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
}

type Service struct {
	db          *sql.DB
	invoices    *invoices.Service
	sender      Sender
	frontendURL string
}

func NewService(db *sql.DB, inv *invoices.Service, sender Sender, frontendURL string) *Service {
	return &Service{db: db, invoices: inv, sender: sender, frontendURL: strings.TrimRight(frontendURL, "/")}
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="hr">
<body style="font-family: sans-serif">
<p>Poštovani {{.Invoice.ContactName}},</p>
<p>u privitku šaljemo račun <strong>{{.Invoice.Code}}</strong> izdan {{.Invoice.IssueDate}}.</p>
<table cellpadding="4" style="border-collapse: collapse">
<tr><th align="left">Opis</th><th align="right">Količina</th><th align="right">Cijena</th><th align="right">Iznos</th></tr>
{{range .Invoice.Items}}<tr><td>{{.Description}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.UnitPrice.StringFixed 2}}</td><td align="right">{{.LineTotal.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Ukupno: {{.Invoice.TotalAmount.StringFixed 2}} EUR<br>
{{if .Invoice.Discount.IsPositive}}Popust: {{.Invoice.Discount.StringFixed 2}} EUR<br>{{end}}
Za platiti: <strong>{{.Invoice.RemainingAmount.StringFixed 2}} EUR</strong>{{if .Invoice.DueDate}} do {{.Invoice.DueDate}}{{end}}</p>
{{if .Link}}<p><a href="{{.Link}}">Pregledajte račun</a></p>{{end}}
</body>
</html>`))

func (s *Service) renderInvoice(inv *invoices.Invoice) (string, error) {
	data := struct {
		Invoice *invoices.Invoice
		Link    string
	}{Invoice: inv}
	if s.frontendURL != "" {
		data.Link = fmt.Sprintf("%s/invoices/%d", s.frontendURL, inv.ID)
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering invoice email: %w", err)
	}
	return buf.String(), nil
}

// SendInvoice emails an invoice summary to the invoice's contact.
func (s *Service) SendInvoice(ctx context.Context, scope tenant.Scope, invoiceID int64) (*Result, error) {
	inv, err := s.invoices.Get(ctx, scope, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.ContactID == nil {
		return nil, ErrNoContact
	}
	if !validator.IsEmail(inv.ContactEmail) {
		return nil, ErrNoContactEmail
	}

	html, err := s.renderInvoice(inv)
	if err != nil {
		return nil, err
	}
	id, err := s.sender.Send(ctx, Message{
		To:      []string{inv.ContactEmail},
		Subject: "Račun " + inv.Code,
		HTML:    html,
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int64("invoice_id", inv.ID).Str("message_id", id).Msg("invoice emailed")
	return &Result{MessageID: id, To: inv.ContactEmail}, nil
}

// SendToContact emails a plain-text message to a contact of the tenant.
func (s *Service) SendToContact(ctx context.Context, scope tenant.Scope, in ContactMessage) (*Result, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	c, err := contacts.Get(ctx, s.db, scope, in.ContactID)
	if err != nil {
		return nil, err
	}
	if !validator.IsEmail(c.Email) {
		return nil, ErrNoContactEmail
	}

	id, err := s.sender.Send(ctx, Message{
		To:      []string{c.Email},
		Subject: in.Subject,
		Text:    in.Body,
	})
	if err != nil {
		return nil, err
	}
	return &Result{MessageID: id, To: c.Email}, nil
}
