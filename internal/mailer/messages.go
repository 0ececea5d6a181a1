package mailer

import "fmt"

// RegistrationMessage builds the confirmation mail carrying the
// registration link for a pre-registered email address.
func RegistrationMessage(baseURL, email, token string) Message {
	return Message{
		To:      email,
		Subject: "Lunch With Friends Registration Email (valid for 30 minutes)",
		Body: fmt.Sprintf(`To create an account, visit the following link:
%s/register/%s

If you did not make this request, then simply ignore this email and no changes will be made.
`, baseURL, token),
	}
}

// PasswordResetMessage builds the mail carrying a password reset link.
func PasswordResetMessage(baseURL, email, token string) Message {
	return Message{
		To:      email,
		Subject: "Lunch With Friends Password Reset Request",
		Body: fmt.Sprintf(`To reset your password, visit the following link:
%s/reset_password/%s

If you did not make this request, then simply ignore this email and no changes will be made.
`, baseURL, token),
	}
}
