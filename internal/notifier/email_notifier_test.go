package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/Kjdragan/codescribe/configs"
	"github.com/Kjdragan/codescribe/internal/models"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSendWelcome(t *testing.T) {
	client := &fakeSES{}
	n := newEmailNotifier(client, "noreply@example.com")

	err := n.SendWelcome(context.Background(), &models.Customer{Email: "alice@example.com", FullName: "Alice Smith"})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "noreply@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"alice@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "Dear Alice Smith")
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "alice@example.com")
}

func TestSendWelcomeWithoutRecipient(t *testing.T) {
	client := &fakeSES{}
	n := newEmailNotifier(client, "noreply@example.com")

	assert.ErrorIs(t, n.SendWelcome(context.Background(), &models.Customer{}), ErrNoRecipient)
	assert.Empty(t, client.inputs)
}

func TestCustomerCreatedSwallowsErrors(t *testing.T) {
	client := &fakeSES{err: errors.New("MessageRejected: Email address is not verified")}
	n := newEmailNotifier(client, "noreply@example.com")

	assert.NotPanics(t, func() {
		n.CustomerCreated(context.Background(), &models.Customer{Email: "bob@example.com", FullName: "Bob"})
	})
	assert.Len(t, client.inputs, 1)
}

func TestNewDisabledReturnsNop(t *testing.T) {
	n, err := New(context.Background(), config.EmailConfig{AWSRegion: "us-east-1"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, n)
}

func TestNewEmailNotifierRequiresSender(t *testing.T) {
	_, err := NewEmailNotifier(context.Background(), config.EmailConfig{AWSRegion: "us-east-1"})
	assert.ErrorIs(t, err, ErrNoSender)
}
