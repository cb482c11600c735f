package service

import (
	"bytes"
	"context"
	"html/template"

	"smartdecor/internal/models"
	"smartdecor/pkg/mailer"

	"go.uber.org/zap"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="max-width:560px;margin:auto;font-family:Arial,Helvetica,sans-serif;color:#333;">
  <h2 style="color:#f97316;">Password reset</h2>
  <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
  <p>Use this code to reset your Smart Indoor Decors password:</p>
  <p style="font-size:28px;font-weight:bold;letter-spacing:6px;">{{.OTP}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not ask for it you can ignore this email.</p>
</div>`))

var orderTemplate = template.Must(template.New("order").Parse(`<div style="max-width:620px;margin:auto;background:#fafafa;padding:28px;border-radius:14px;font-family:Arial,Helvetica,sans-serif;color:#333;">
  <h2 style="color:#f97316;margin-top:0;">New Order Received</h2>
  <p><strong>Order:</strong> #{{.Order.ID}}</p>
  <p><strong>Name:</strong> {{.Order.CustomerName}}</p>
  <p><strong>Email:</strong> {{.Order.CustomerEmail}}</p>
  <p><strong>Phone:</strong> {{.Order.CustomerPhone}}</p>
  <p><strong>Shipping Address:</strong> {{.Order.ShippingAddress}}</p>
  <p style="font-size:16px;"><strong>Total Amount:</strong> <span style="color:#f97316;font-weight:bold;">KES {{.Order.TotalAmount.StringFixed 2}}</span></p>
  <h3 style="color:#f97316;">Order Items</h3>
  {{range .Order.Items}}<div style="display:flex;align-items:center;padding:12px 14px;background:#fff;border-radius:10px;margin-bottom:14px;">
    {{if .Product.ImageURL}}<img src="{{.Product.ImageURL}}" alt="{{.Product.Name}}" style="width:110px;border-radius:8px;margin-right:14px;"/>{{end}}
    <div>
      <div style="font-weight:600;">{{if .Product.Name}}{{.Product.Name}}{{else}}Product #{{.ProductID}}{{end}}</div>
      <div>Qty: {{.Quantity}}</div>
      <div>Price: <strong style="color:#f97316;">KES {{.Price.StringFixed 2}}</strong></div>
    </div>
  </div>{{end}}
  <p style="text-align:center;margin-top:26px;color:#27ae60;font-weight:600;">Thank you for choosing Smart Indoor Decors.</p>
</div>`))

// MailService renders and sends transactional email.
type MailService struct {
	mailer      mailer.Mailer
	ordersInbox string
	log         *zap.Logger
}

func NewMailService(m mailer.Mailer, ordersInbox string, log *zap.Logger) *MailService {
	return &MailService{mailer: m, ordersInbox: ordersInbox, log: log.Named("mail")}
}

func (s *MailService) SendPasswordResetOTP(ctx context.Context, to, name, otp string, minutes int) error {
	body, err := render(otpTemplate, map[string]any{"Name": name, "OTP": otp, "Minutes": minutes})
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, []string{to}, "Your password reset code", body)
}

// SendNewOrder notifies the shop inbox. Order items should have Product loaded.
func (s *MailService) SendNewOrder(ctx context.Context, order *models.Order) error {
	if s.ordersInbox == "" {
		s.log.Debug("no orders inbox configured; skipping new order email", zap.Uint("order_id", order.ID))
		return nil
	}
	body, err := render(orderTemplate, map[string]any{"Order": order})
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, []string{s.ordersInbox}, "New Order Received", body)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
