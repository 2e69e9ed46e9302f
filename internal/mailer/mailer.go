// Package mailer sends alert and report emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

// Sender delivers rendered emails to a list of recipients.
type Sender interface {
	SendAlert(ctx context.Context, recipients []string, alert domain.Alert, recommendations []string) error
	SendCampaignUpdate(ctx context.Context, recipients []string, data CampaignUpdateData) error
	SendWeeklyReport(ctx context.Context, recipients []string, data WeeklyReportData) error
}

// Mailer implements Sender over SMTP with STARTTLS.
type Mailer struct {
	host         string
	port         int
	username     string
	password     string
	from         string
	dashboardURL string
}

func New(host string, port int, username, password, from, dashboardURL string) *Mailer {
	return &Mailer{
		host:         host,
		port:         port,
		username:     username,
		password:     password,
		from:         from,
		dashboardURL: dashboardURL,
	}
}

func (m *Mailer) send(ctx context.Context, templateName string, recipients []string, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		metrics.EmailsSentTotal.WithLabelValues(templateName, "error").Inc()
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.EmailsSentTotal.WithLabelValues(templateName, "success").Inc()
	slog.Info("Email sent", "template", templateName, "recipients", len(recipients))
	return nil
}

// SendAlert emails a triggered campaign alert.
func (m *Mailer) SendAlert(ctx context.Context, recipients []string, alert domain.Alert, recommendations []string) error {
	data := AlertEmailData{
		Title:    fmt.Sprintf("%s: %s", alert.CampaignName, alert.Metric),
		Message:  alert.Message,
		Severity: alert.Severity,
		Metrics: []AlertMetric{
			{Name: "Current", Value: fmt.Sprintf("%.4f", alert.CurrentValue)},
			{Name: "Previous", Value: fmt.Sprintf("%.4f", alert.PreviousValue), Change: fmt.Sprintf("%+.1f%%", alert.ChangePercent)},
		},
		Recommendations: recommendations,
		Timestamp:       FormatTimestamp(alert.TriggeredAt),
		DashboardURL:    m.dashboardURL,
	}

	body, err := Render(TemplateAlert, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Marketing Alert: %s", data.Title)
	return m.send(ctx, TemplateAlert, recipients, subject, body)
}

// SendCampaignUpdate emails a campaign performance summary.
func (m *Mailer) SendCampaignUpdate(ctx context.Context, recipients []string, data CampaignUpdateData) error {
	data.DashboardURL = m.dashboardURL
	body, err := Render(TemplateCampaignUpdate, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Campaign Update: %s", data.CampaignName)
	return m.send(ctx, TemplateCampaignUpdate, recipients, subject, body)
}

// SendWeeklyReport emails the weekly performance digest.
func (m *Mailer) SendWeeklyReport(ctx context.Context, recipients []string, data WeeklyReportData) error {
	data.DashboardURL = m.dashboardURL
	body, err := Render(TemplateWeeklyReport, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Weekly Marketing Report - %s to %s", data.WeekStart, data.WeekEnd)
	return m.send(ctx, TemplateWeeklyReport, recipients, subject, body)
}

// WeekWindow returns the [start, end] dates of the week ending at now,
// formatted for the weekly report.
func WeekWindow(now time.Time) (string, string) {
	end := now.UTC()
	start := end.AddDate(0, 0, -7)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}
