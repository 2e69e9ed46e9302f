package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Template names.
const (
	TemplateAlert          = "alert"
	TemplateCampaignUpdate = "campaign_update"
	TemplateWeeklyReport   = "weekly_report"
)

// Amounts render with the local "rm" (Malaysian ringgit) prefix.
var templateFuncs = template.FuncMap{
	"rm": func(v float64) string {
		return fmt.Sprintf("rm%.2f", v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
}

var emailTemplates = template.Must(template.New("emails").Funcs(templateFuncs).Parse(`
{{define "alert"}}<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Marketing Alert - Precision Marketing Intelligence</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
.container { max-width: 600px; margin: 0 auto; background: white; border-radius: 10px; overflow: hidden; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
.content { padding: 30px; }
.alert-high { border-left: 4px solid #dc3545; background-color: #f8d7da; padding: 15px; margin: 20px 0; border-radius: 4px; }
.alert-medium { border-left: 4px solid #ffc107; background-color: #fff3cd; padding: 15px; margin: 20px 0; border-radius: 4px; }
.metric { background: #f8f9fa; padding: 15px; border-radius: 6px; margin: 10px 0; }
.button { display: inline-block; padding: 12px 24px; background: #667eea; color: white; text-decoration: none; border-radius: 6px; margin: 10px 0; }
.footer { background: #f8f9fa; padding: 20px; text-align: center; color: #666; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>Marketing Alert</h1><p>Precision Marketing Intelligence Platform</p></div>
<div class="content">
<div class="alert-{{.Severity}}">
<h2>{{.Title}}</h2>
<p>{{.Message}}</p>
</div>
{{if .Metrics}}<h3>Current Metrics</h3>
{{range .Metrics}}<div class="metric"><strong>{{.Name}}:</strong> {{.Value}}{{if .Change}} <span>({{.Change}})</span>{{end}}</div>
{{end}}{{end}}
{{if .Recommendations}}<h3>AI Recommendations</h3>
<ul>{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul>
{{end}}
<div style="text-align: center; margin: 30px 0;">
<a href="{{.DashboardURL}}/dashboard" class="button">View Dashboard</a>
<a href="{{.DashboardURL}}/campaigns" class="button">Manage Campaigns</a>
</div>
<p><strong>Time:</strong> {{.Timestamp}}</p>
<p><strong>Severity:</strong> {{.Severity}}</p>
</div>
<div class="footer">
<p>Precision Marketing Intelligence Platform</p>
<p>Malaysian Business Analytics Solution</p>
</div>
</div>
</body>
</html>{{end}}

{{define "campaign_update"}}<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Campaign Update - Precision Marketing Intelligence</title>
</head>
<body>
<div style="max-width: 600px; margin: 0 auto; font-family: Arial, sans-serif;">
<h1>Campaign Update: {{.CampaignName}}</h1>
<h2>Performance Summary</h2>
<div><h3>{{rm .Budget}}</h3><p>Budget</p></div>
<div><h3>{{rm .Spent}}</h3><p>Spent ({{pct .BudgetUtilization}})</p></div>
<ul>
<li><strong>Impressions:</strong> {{.Impressions}}</li>
<li><strong>Clicks:</strong> {{.Clicks}}</li>
<li><strong>Conversions:</strong> {{.Conversions}}</li>
<li><strong>Click-through Rate:</strong> {{pct .CTR}}</li>
<li><strong>Cost per Click:</strong> {{rm .CPC}}</li>
<li><strong>Return on Ad Spend:</strong> {{printf "%.2fx" .ROAS}}</li>
</ul>
<p><a href="{{.DashboardURL}}/campaigns/{{.CampaignID}}">Manage Campaign</a></p>
<p style="color: #666;">Precision Marketing Intelligence Platform</p>
</div>
</body>
</html>{{end}}

{{define "weekly_report"}}<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Weekly Marketing Report - Precision Marketing Intelligence</title>
</head>
<body>
<div style="max-width: 600px; margin: 0 auto; font-family: Arial, sans-serif;">
<h1>Weekly Marketing Report</h1>
<p>{{.WeekStart}} to {{.WeekEnd}}</p>
<h2>Performance Overview</h2>
<div><h3>{{rm .TotalRevenue}}</h3><p>Total Revenue</p></div>
<div><h3>{{rm .TotalSpend}}</h3><p>Total Spend</p></div>
<div><h3>{{.TotalConversions}}</h3><p>Conversions</p></div>
<div><h3>{{printf "%.2fx" .OverallROAS}}</h3><p>Overall ROAS</p></div>
{{if .TopCampaigns}}<h3>Top Performing Campaigns</h3>
<ul>{{range .TopCampaigns}}<li><strong>{{.Name}}</strong> - {{rm .Revenue}} revenue ({{pct .Efficiency}} efficiency)</li>{{end}}</ul>
{{end}}
{{if .Insights}}<h3>Insights</h3>
<ul>{{range .Insights}}<li>{{.}}</li>{{end}}</ul>
{{end}}
<p><a href="{{.DashboardURL}}/analytics">View Full Analytics</a></p>
<p style="color: #666;">Precision Marketing Intelligence Platform</p>
</div>
</body>
</html>{{end}}
`))

// AlertMetric is a single metric line in an alert email.
type AlertMetric struct {
	Name   string
	Value  string
	Change string
}

// AlertEmailData feeds the alert template.
type AlertEmailData struct {
	Title           string
	Message         string
	Severity        string
	Metrics         []AlertMetric
	Recommendations []string
	Timestamp       string
	DashboardURL    string
}

// CampaignUpdateData feeds the campaign update template.
type CampaignUpdateData struct {
	CampaignID        int64
	CampaignName      string
	Budget            float64
	Spent             float64
	BudgetUtilization float64
	Impressions       int64
	Clicks            int64
	Conversions       int64
	CTR               float64
	CPC               float64
	ROAS              float64
	DashboardURL      string
}

// TopCampaign is one row of the weekly report leaderboard.
type TopCampaign struct {
	Name       string
	Revenue    float64
	Efficiency float64
}

// WeeklyReportData feeds the weekly report template.
type WeeklyReportData struct {
	WeekStart        string
	WeekEnd          string
	TotalRevenue     float64
	TotalSpend       float64
	TotalConversions int64
	OverallROAS      float64
	TopCampaigns     []TopCampaign
	Insights         []string
	DashboardURL     string
}

// Render executes a named email template.
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatTimestamp renders times the way the platform displays them.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}
