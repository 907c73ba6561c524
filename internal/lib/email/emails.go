package email

// SendWelcomeEmail sends a welcome email to a freshly registered user.
func (c *Client) SendWelcomeEmail(to, name string) error {
	data := map[string]string{
		"UserName": name,
	}

	return c.SendEmail(
		to,
		"Welcome to Receipts!",
		TemplateWelcome,
		data,
	)
}
