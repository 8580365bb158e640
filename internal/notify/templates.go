package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/ashendes/commerce-api/internal/models"
)

// Kind selects a subject line and body pair
type Kind string

const (
	KindConfirmation  Kind = "confirmation"
	KindCancellation  Kind = "cancellation"
	KindStatusUpdate  Kind = "statusUpdate"
	KindShipped       Kind = "shipped"
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "passwordReset"
)

// Payload is everything a template may need, unused fields stay empty
type Payload struct {
	Order        models.OrderEmailData
	Reason       string
	Status       string
	TrackingInfo string
	Name         string
	ResetURL     string
}

type statusCopy struct {
	subject string
	heading string
	message string
}

var statusCopies = map[string]statusCopy{
	"confirmed":        {"Order Confirmed", "Your order is confirmed", "We have confirmed your order and will start preparing it shortly."},
	"processing":       {"Your Order is Being Processed", "We're preparing your order", "Your order is being packed and will ship soon."},
	"shipped":          {"Your Order Has Shipped", "Your order is on its way", "Your order has left our warehouse."},
	"out_for_delivery": {"Out for Delivery", "Arriving today", "Your order is out for delivery and should reach you today."},
	"delivered":        {"Order Delivered", "Delivered", "Your order has been delivered. We hope you love it."},
	"cancelled":        {"Order Cancelled", "Your order was cancelled", "Your order has been cancelled."},
	"refunded":         {"Refund Processed", "Your refund is on its way", "We have processed your refund. It may take 5-7 business days to appear."},
}

var genericStatus = statusCopy{"Order Status Update", "Your order has an update", "The status of your order has changed."}

// copyFor falls back to the generic update for statuses it does not know
func copyFor(status string) statusCopy {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(status), " ", "_"))
	if c, ok := statusCopies[key]; ok {
		return c
	}
	return genericStatus
}

type view struct {
	Payload
	Store   string
	AppURL  string
	Heading string
	Message string
}

// Renderer parses the templates once and renders EmailJobs from payloads
type Renderer struct {
	store  string
	appURL string
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

func NewRenderer(store, appURL string) *Renderer {
	funcs := map[string]any{
		"money":     func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
		"lineTotal": func(i models.OrderItem) string { return fmt.Sprintf("₹%.2f", i.Price*float64(i.Quantity)) },
	}
	return &Renderer{
		store:  store,
		appURL: appURL,
		html:   htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(htmlTemplates)),
		text:   texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(textTemplates)),
	}
}

// Subject is total over Kind, unknown kinds read as a generic status update
func (r *Renderer) Subject(kind Kind, p Payload) string {
	id := p.Order.OrderID
	switch kind {
	case KindConfirmation:
		return "Order Confirmed - #" + id
	case KindCancellation:
		return "Order Cancelled - #" + id
	case KindShipped:
		return "Your Order Has Shipped - #" + id
	case KindWelcome:
		return "Welcome to " + r.store + "!"
	case KindPasswordReset:
		return "Reset your " + r.store + " password"
	default:
		return copyFor(p.Status).subject + " - #" + id
	}
}

// Render produces the subject and both bodies, To is left for the dispatcher
func (r *Renderer) Render(kind Kind, p Payload) (models.EmailJob, error) {
	name := templateName(kind)
	v := view{Payload: p, Store: r.store, AppURL: r.appURL}
	if name == "status" {
		c := copyFor(p.Status)
		v.Heading, v.Message = c.heading, c.message
	}
	if v.Name == "" {
		v.Name = p.Order.CustomerName
	}
	if v.Name == "" {
		v.Name = "there"
	}

	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, name, v); err != nil {
		return models.EmailJob{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := r.text.ExecuteTemplate(&text, name, v); err != nil {
		return models.EmailJob{}, fmt.Errorf("render %s text: %w", kind, err)
	}

	return models.EmailJob{
		Subject: r.Subject(kind, p),
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()) + "\n",
	}, nil
}

func templateName(kind Kind) string {
	switch kind {
	case KindConfirmation:
		return "confirmation"
	case KindCancellation:
		return "cancellation"
	case KindShipped:
		return "shipped"
	case KindWelcome:
		return "welcome"
	case KindPasswordReset:
		return "passwordReset"
	default:
		return "status"
	}
}

const htmlTemplates = `
{{define "header"}}<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222;max-width:600px;margin:auto">
<h2 style="color:#4f46e5">{{.Store}}</h2>{{end}}
{{define "footer"}}<p style="color:#888;font-size:12px">Questions? Reply to this email or visit <a href="{{.AppURL}}">{{.AppURL}}</a>.</p></body></html>{{end}}
{{define "items"}}<table style="width:100%;border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Total</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{lineTotal .}}</td></tr>
{{end}}<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>{{money .Order.TotalAmount}}</strong></td></tr>
</table>{{end}}
{{define "address"}}{{with .Order.ShippingAddress}}<p><strong>Shipping to</strong><br>{{.FullName}}<br>{{.Address}}<br>{{.City}}, {{.State}} {{.Pincode}}<br>{{.Mobile}}</p>{{end}}{{end}}

{{define "confirmation"}}{{template "header" .}}
<p>Hi {{.Name}},</p>
<p>Thank you for your order! Your order <strong>#{{.Order.OrderID}}</strong> has been placed.</p>
{{template "items" .}}
{{template "address" .}}
{{with .Order.EstimatedDelivery}}<p>Estimated delivery: <strong>{{.}}</strong></p>{{end}}
{{with .Order.TrackingNumber}}<p>Tracking number: <strong>{{.}}</strong></p>{{end}}
{{with .Order.PaymentMethod}}<p>Payment method: {{.}}</p>{{end}}
<p><a href="{{.AppURL}}/orders/{{.Order.OrderID}}">View your order</a></p>
{{template "footer" .}}{{end}}

{{define "cancellation"}}{{template "header" .}}
<p>Hi {{.Name}},</p>
<p>Your order <strong>#{{.Order.OrderID}}</strong> has been cancelled.</p>
{{with .Reason}}<p>Reason: {{.}}</p>{{end}}
{{if .Order.Items}}{{template "items" .}}{{end}}
<p>If you paid online, any amount charged will be refunded to the original payment method.</p>
{{template "footer" .}}{{end}}

{{define "status"}}{{template "header" .}}
<h3>{{.Heading}}</h3>
<p>Hi {{.Name}},</p>
<p>{{.Message}}</p>
<p>Order <strong>#{{.Order.OrderID}}</strong>{{with .Status}} is now <strong>{{.}}</strong>{{end}}.</p>
{{with .TrackingInfo}}<p>Tracking: {{.}}</p>{{end}}
<p><a href="{{.AppURL}}/orders/{{.Order.OrderID}}">Track your order</a></p>
{{template "footer" .}}{{end}}

{{define "shipped"}}{{template "header" .}}
<p>Hi {{.Name}},</p>
<p>Good news! Your order <strong>#{{.Order.OrderID}}</strong> has shipped.</p>
{{with .Order.TrackingNumber}}<p>Tracking number: <strong>{{.}}</strong></p>{{end}}
{{with .TrackingInfo}}<p>{{.}}</p>{{end}}
{{with .Order.EstimatedDelivery}}<p>Expected by {{.}}</p>{{end}}
{{template "footer" .}}{{end}}

{{define "welcome"}}{{template "header" .}}
<p>Hi {{.Name}},</p>
<p>Welcome to {{.Store}}! Your account is ready.</p>
<p><a href="{{.AppURL}}">Start shopping</a></p>
{{template "footer" .}}{{end}}

{{define "passwordReset"}}{{template "header" .}}
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{.ResetURL}}">Reset password</a></p>
<p>If you did not ask for this you can ignore this email.</p>
{{template "footer" .}}{{end}}
`

const textTemplates = `
{{define "items"}}{{range .Order.Items}}- {{.Name}} x{{.Quantity}}: {{lineTotal .}}
{{end}}Total: {{money .Order.TotalAmount}}{{end}}

{{define "confirmation"}}Hi {{.Name}},

Thank you for your order! Your order #{{.Order.OrderID}} has been placed.

{{template "items" .}}
{{with .Order.ShippingAddress}}
Shipping to: {{.FullName}}, {{.Address}}, {{.City}}, {{.State}} {{.Pincode}}
{{end}}{{with .Order.EstimatedDelivery}}Estimated delivery: {{.}}
{{end}}{{with .Order.TrackingNumber}}Tracking number: {{.}}
{{end}}
View your order: {{.AppURL}}/orders/{{.Order.OrderID}}
{{end}}

{{define "cancellation"}}Hi {{.Name}},

Your order #{{.Order.OrderID}} has been cancelled.
{{with .Reason}}Reason: {{.}}
{{end}}
If you paid online, any amount charged will be refunded to the original payment method.
{{end}}

{{define "status"}}Hi {{.Name}},

{{.Heading}}. {{.Message}}
Order #{{.Order.OrderID}}{{with .Status}} is now {{.}}{{end}}.
{{with .TrackingInfo}}Tracking: {{.}}
{{end}}
Track your order: {{.AppURL}}/orders/{{.Order.OrderID}}
{{end}}

{{define "shipped"}}Hi {{.Name}},

Good news! Your order #{{.Order.OrderID}} has shipped.
{{with .Order.TrackingNumber}}Tracking number: {{.}}
{{end}}{{with .TrackingInfo}}{{.}}
{{end}}{{with .Order.EstimatedDelivery}}Expected by {{.}}
{{end}}{{end}}

{{define "welcome"}}Hi {{.Name}},

Welcome to {{.Store}}! Your account is ready.
Start shopping: {{.AppURL}}
{{end}}

{{define "passwordReset"}}Hi {{.Name}},

We received a request to reset your password.
Reset it here: {{.ResetURL}}

If you did not ask for this you can ignore this email.
{{end}}
`
