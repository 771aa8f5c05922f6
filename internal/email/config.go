package email

// Config holds email delivery settings
type Config struct {
	// Enabled turns real delivery on; disabled configs log instead of sending
	Enabled       bool
	MailgunDomain string
	MailgunAPIKey string
	FromEmail     string
	FromName      string
	// AppBaseURL is used for links back to the web app
	AppBaseURL string
}

// IsConfigured returns true if Mailgun credentials are present
func (c *Config) IsConfigured() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != ""
}

func (c *Config) fromName() string {
	if c.FromName == "" {
		return "IIITConnect"
	}
	return c.FromName
}
