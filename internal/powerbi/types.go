package powerbi

import "time"

// Workspace is a Power BI workspace (group).
type Workspace struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsReadOnly bool   `json:"isReadOnly"`
	Type       string `json:"type,omitempty"`
}

// Report is a report inside a workspace.
type Report struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	WebURL    string `json:"webUrl"`
	EmbedURL  string `json:"embedUrl"`
	DatasetID string `json:"datasetId"`
}

// Dataset is a dataset inside a workspace.
type Dataset struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsRefreshable bool   `json:"isRefreshable"`
}

// Page is a single report page.
type Page struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
}

// Refresh is one entry of a dataset's refresh history.
type Refresh struct {
	RefreshType string     `json:"refreshType"`
	Status      string     `json:"status"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

// EffectiveIdentity carries row-level security context for embed
// token generation.
type EffectiveIdentity struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	Datasets []string `json:"datasets"`
}

// EmbedToken is a generated report embed token.
type EmbedToken struct {
	Token      string    `json:"token"`
	TokenID    string    `json:"tokenId"`
	Expiration time.Time `json:"expiration"`
}

// EmbedConfig bundles everything a frontend needs to embed a report.
type EmbedConfig struct {
	ReportID    string    `json:"report_id"`
	ReportName  string    `json:"report_name"`
	EmbedURL    string    `json:"embed_url"`
	AccessToken string    `json:"access_token"`
	TokenID     string    `json:"token_id"`
	Expiration  time.Time `json:"expiration"`
}
