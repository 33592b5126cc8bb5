package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/errs"
)

var htmlLayout = template.Must(template.New("email").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Heading}}</h2>
<p>Hi {{.Name}},</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}<p>Booking code: <strong>{{.BookingCode}}</strong></p>
</body></html>`))

type rendered struct {
	Heading     string
	Name        string
	Lines       []string
	BookingCode string
}

// Render turns a job into a message.
func Render(job Job) (Message, error) {
	n := job.Notice
	when := fmt.Sprintf("%s to %s", n.Start.Format(time.RFC1123), n.End.Format(time.Kitchen))
	view := rendered{Name: firstNonEmpty(n.Name, "there"), BookingCode: n.BookingCode}
	var subject string
	switch job.Kind {
	case KindBookingConfirmed:
		subject = "Booking confirmed: " + n.SpaceName
		view.Heading = "Your booking is confirmed"
		view.Lines = []string{
			fmt.Sprintf("%s is reserved for you on %s.", n.SpaceName, when),
			"Amount paid: " + formatMoney(n.Total) + ".",
		}
	case KindPaymentFailed:
		subject = "Payment failed: " + n.SpaceName
		view.Heading = "We could not process your payment"
		view.Lines = []string{
			fmt.Sprintf("Your payment for %s on %s did not go through.", n.SpaceName, when),
			"Reason: " + firstNonEmpty(job.Reason, "not provided") + ".",
			"You can retry the payment from your reservations.",
		}
	case KindRefundProcessed:
		subject = "Refund processed: " + n.SpaceName
		view.Heading = "Your refund is on its way"
		view.Lines = []string{
			fmt.Sprintf("We refunded %s for your booking of %s.", formatMoney(job.Amount), n.SpaceName),
		}
		if job.Reason != "" {
			view.Lines = append(view.Lines, "Reason: "+job.Reason+".")
		}
	case KindBookingReminder:
		subject = "Reminder: " + n.SpaceName + " tomorrow"
		view.Heading = "See you soon"
		view.Lines = []string{fmt.Sprintf("This is a reminder of your booking at %s on %s.", n.SpaceName, when)}
	default:
		return Message{}, errs.Newf("notify: unknown job kind %q", job.Kind)
	}

	var html bytes.Buffer
	if err := htmlLayout.Execute(&html, view); err != nil {
		return Message{}, err
	}
	text := "Hi " + view.Name + ",\n\n" + strings.Join(view.Lines, "\n") + "\n\nBooking code: " + n.BookingCode + "\n"
	return Message{To: n.Email, Subject: subject, HTML: html.String(), Text: text}, nil
}

func formatMoney(m money.Money) string {
	currency := m.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return fmt.Sprintf("%s %d.%02d", currency, m.Amount/100, m.Amount%100)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
