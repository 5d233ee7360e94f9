package email

type SendEmailRequest struct {
	FromAddress string
	ToAddress   string
	Subject     string
	Text        string
}

type SendEmailResponse struct {
	MessageID string
	Success   bool
	Error     string
}

type SendEmailWithTemplateRequest struct {
	FromAddress  string
	ToAddress    string
	Subject      string
	TemplatePath string
	Data         map[string]interface{}
}

type SendEmailWithTemplateResponse struct {
	MessageID string
	Success   bool
	Error     string
}
