package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService sends account emails via Amazon SES. With no from-address
// configured the service is disabled and every send is a logged no-op,
// so loopback deployments need no AWS credentials.
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName string) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail greets a new account, when it registered with an email.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to your Greek tutor"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body>
	<p>Hi %s,</p>
	<p>Your account is ready. Log in to chat with the tutor, build vocabulary
	lists from the Greek New Testament, and quiz yourself as you go.</p>
	<p>Καλὴ ἀρχή!</p>
</body>
</html>
`, username)
	textBody := fmt.Sprintf(`Hi %s,

Your account is ready. Log in to chat with the tutor, build vocabulary
lists from the Greek New Testament, and quiz yourself as you go.
`, username)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendPasswordChangedEmail notifies a user that an administrator reset
// their password out of band.
func (s *EmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, username string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): password change notice to %s", toEmail)
		return nil
	}

	subject := "Your tutor password was reset"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body>
	<p>Hi %s,</p>
	<p>An administrator has reset the password on your account. If you did not
	ask for this, contact the site operator.</p>
</body>
</html>
`, username)
	textBody := fmt.Sprintf(`Hi %s,

An administrator has reset the password on your account. If you did not
ask for this, contact the site operator.
`, username)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
