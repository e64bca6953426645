package models

// ContactMessage is a contact form submission that has already passed
// captcha verification and is ready for delivery.
type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Body    string
}
