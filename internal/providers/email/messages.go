package email

import "fmt"

// NewInvitationMessage builds the organization invitation email. The
// link is a mobile deep link handled by the Expo client.
func NewInvitationMessage(to, inviterName, inviterEmail, orgName, role, inviteLink string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You're invited to join %s", orgName),
		Meta: Meta{
			Description: fmt.Sprintf(
				"%s (%s) has invited you to join %s on Brnit as %s. Accept to join the group and start your health challenge.",
				inviterName, inviterEmail, orgName, role,
			),
			Link:     inviteLink,
			LinkText: "Accept invitation",
		},
	}
}

// NewPasswordResetMessage builds the password reset email.
func NewPasswordResetMessage(to, resetLink string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Meta: Meta{
			Description: "We received a request to reset your password. If you did not make this request, you can safely ignore this email.",
			Link:        resetLink,
			LinkText:    "Reset password",
		},
	}
}

// NewVerificationMessage builds the email verification email.
func NewVerificationMessage(to, verifyLink string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Meta: Meta{
			Description: "Welcome to Brnit! Please confirm your email address to finish setting up your account.",
			Link:        verifyLink,
			LinkText:    "Verify email",
		},
	}
}
