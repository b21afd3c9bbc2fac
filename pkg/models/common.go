package models

// ErrorResponse is the generic API error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BulkEmailRequest represents a bulk email dispatch request
type BulkEmailRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,dive,email"`
	Subject    string   `json:"subject" validate:"required"`
	HTMLBody   string   `json:"html_body" validate:"required"`
	TextBody   string   `json:"text_body"`
}

// PhoneMessage pairs a phone number with a message body
type PhoneMessage struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// BulkMessageRequest represents a bulk SMS or WhatsApp dispatch request
type BulkMessageRequest struct {
	Recipients []PhoneMessage `json:"recipients" validate:"required,min=1,dive"`
}
