package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// messageCreator is the part of the Twilio REST client used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio sends text messages through Twilio.
type Twilio struct {
	api  messageCreator
	from string
}

func NewTwilio(cfg TwilioConfig) (*Twilio, error) {
	if !cfg.Enabled() {
		return nil, errors.New("twilio: account_sid, auth_token and from are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Twilio{api: client.Api, from: cfg.From}, nil
}

func (s *Twilio) Name() string { return "twilio" }

// Send does not honor ctx cancellation mid-request; the Twilio client has no
// context-aware API.
func (s *Twilio) Send(ctx context.Context, recipient, body string) (domain.Ack, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ack{}, err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return domain.Ack{}, fmt.Errorf("twilio send to %s: %w", recipient, err)
	}
	ack := domain.Ack{Channel: "sms"}
	if resp != nil && resp.Sid != nil {
		ack.ID = *resp.Sid
	}
	return ack, nil
}
