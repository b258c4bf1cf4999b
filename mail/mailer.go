// Package mail sends the storefront's transactional email over SMTP.
package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"storefront-svc/config"
	"storefront-svc/models"
)

// Sender is what the handlers depend on; tests substitute a fake.
type Sender interface {
	SendInvoice(order *models.Order, ccEmails []string) error
	SendOTP(email, otp, purpose string) error
	SendSample(email, discountCode string) error
	SendTest(email string) error
}

type SMTPSender struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	appURL string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:   cfg.SMTPHost,
		port:   cfg.SMTPPort,
		user:   cfg.SMTPUser,
		pass:   cfg.SMTPPass,
		from:   cfg.SMTPFrom,
		appURL: cfg.AppURL,
	}
}

func (s *SMTPSender) send(to, subject, htmlBody string, cc []string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	if len(cc) > 0 {
		m.SetHeader("Cc", cc...)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	return d.DialAndSend(m)
}

// InvoiceSubject is also what gets recorded in email_logs.
func InvoiceSubject(orderID int) string {
	return fmt.Sprintf("Your Order Confirmation & Invoice - #%d", orderID)
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
  <h2>Thank you for your purchase!</h2>
  <p>Hi {{.Name}},</p>
  <p>Your payment for <strong>{{.Product}}</strong> has been successful.</p>
  <div style="background: #f9f9f9; padding: 15px; border-radius: 8px;">
    <p><strong>Order ID:</strong> #{{.OrderID}}</p>
    <p><strong>Amount Paid:</strong> ₹{{printf "%.2f" .Amount}}</p>
    <p><strong>Status:</strong> Paid</p>
  </div>
  <p>You can download your tax invoice here:</p>
  <p><a href="{{.InvoiceURL}}">Download Invoice</a></p>
  <p>Keep Cooking Satvik!</p>
</div>`))

func (s *SMTPSender) SendInvoice(order *models.Order, ccEmails []string) error {
	name := "Customer"
	if order.CustomerName.Valid && order.CustomerName.String != "" {
		name = order.CustomerName.String
	}
	product := "your order"
	if order.ProductName.Valid && order.ProductName.String != "" {
		product = order.ProductName.String
	}

	var body bytes.Buffer
	err := invoiceTmpl.Execute(&body, map[string]interface{}{
		"Name":       name,
		"Product":    product,
		"OrderID":    order.ID,
		"Amount":     float64(order.Amount) / 100,
		"InvoiceURL": fmt.Sprintf("%s/api/orders/%d/invoice", s.appURL, order.ID),
	})
	if err != nil {
		return err
	}

	return s.send(order.CustomerEmail, InvoiceSubject(order.ID), body.String(), ccEmails)
}

func (s *SMTPSender) SendOTP(email, otp, purpose string) error {
	subject := "Your verification code"
	if purpose == models.OTPPurposePasswordReset {
		subject = "Your password reset code"
	}
	body := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
  <p>Your one-time code is:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</p>
  <p>It expires in 10 minutes. If you did not request it, ignore this email.</p>
</div>`, template.HTMLEscapeString(otp))
	return s.send(email, subject, body, nil)
}

func (s *SMTPSender) SendSample(email, discountCode string) error {
	body := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
  <h2>Your Satvik Journey Starts Here!</h2>
  <p>As promised, here is your free sampler and an exclusive gift.</p>
  <p><a href="%s/free-sample">View Free Sampler →</a></p>
  <p>Get an ADDITIONAL 10%% OFF with this code:</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 2px;">%s</p>
</div>`, s.appURL, template.HTMLEscapeString(discountCode))
	return s.send(email, "🎁 Your Free Satvik Recipe Sampler & Special Gift!", body, nil)
}

func (s *SMTPSender) SendTest(email string) error {
	body := `<p>This is a test email from the storefront. SMTP delivery is working.</p>`
	return s.send(email, "Storefront test email", body, nil)
}
