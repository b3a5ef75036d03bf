package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog"

	config "github.com/Kjdragan/codescribe/configs"
	"github.com/Kjdragan/codescribe/internal/logger"
	"github.com/Kjdragan/codescribe/internal/models"
)

var (
	ErrNoSender    = errors.New("sender email address is not configured")
	ErrNoRecipient = errors.New("recipient email address is empty")
)

// Notifier is told about every newly created customer.
type Notifier interface {
	CustomerCreated(ctx context.Context, c *models.Customer)
}

// Nop is used when no sender address is configured.
type Nop struct{}

func (Nop) CustomerCreated(context.Context, *models.Customer) {}

// sesAPI is the part of the SES client we call.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailNotifier sends a welcome email through Amazon SES.
type EmailNotifier struct {
	client sesAPI
	sender string
	log    zerolog.Logger
}

// New returns Nop when email is disabled in cfg.
func New(ctx context.Context, cfg config.EmailConfig) (Notifier, error) {
	if !cfg.Enabled() {
		return Nop{}, nil
	}
	return NewEmailNotifier(ctx, cfg)
}

func NewEmailNotifier(ctx context.Context, cfg config.EmailConfig) (*EmailNotifier, error) {
	if cfg.SenderEmail == "" {
		return nil, ErrNoSender
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return newEmailNotifier(ses.NewFromConfig(awsCfg), cfg.SenderEmail), nil
}

func newEmailNotifier(client sesAPI, sender string) *EmailNotifier {
	return &EmailNotifier{client: client, sender: sender, log: logger.Component("notifier")}
}

// CustomerCreated sends the welcome email and logs the outcome. Failures
// never reach the caller; the customer row already exists.
func (n *EmailNotifier) CustomerCreated(ctx context.Context, c *models.Customer) {
	if err := n.SendWelcome(ctx, c); err != nil {
		n.log.Error().Err(err).Str("email", c.Email).Msg("failed to send welcome email")
		return
	}
	n.log.Info().Str("email", c.Email).Msg("welcome email sent")
}

func (n *EmailNotifier) SendWelcome(ctx context.Context, c *models.Customer) error {
	if c == nil || c.Email == "" {
		return ErrNoRecipient
	}

	subject := "Welcome aboard!"

	bodyHTML := fmt.Sprintf(`
        <html>
        <body>
            <p>Dear %s,</p>
            <p>Your customer profile has been created with the email address %s.</p>
            <p>If you did not expect this message, please reply and let us know.</p>
            <p>Best regards,</p>
            <p>The Customer Service Team</p>
        </body>
        </html>`, c.FullName, c.Email)

	bodyText := fmt.Sprintf(
		"Dear %s,\n\nYour customer profile has been created with the email address %s.\n\n"+
			"If you did not expect this message, please reply and let us know.\n\nBest regards,\nThe Customer Service Team",
		c.FullName, c.Email)

	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{c.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyHTML),
				},
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyText),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
