package sms

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/wemeetoffline/server/internal/config"
	"github.com/wemeetoffline/server/internal/metrics"
)

// TwilioSender delivers one-time codes over SMS. With SMS disabled it logs
// the code instead, which is what local development wants.
type TwilioSender struct {
	cfg    config.SMSConfig
	client *twilio.RestClient
	logger zerolog.Logger
}

func NewTwilioSender(cfg config.SMSConfig, logger zerolog.Logger) *TwilioSender {
	s := &TwilioSender{
		cfg:    cfg,
		logger: logger.With().Str("component", "sms").Logger(),
	}
	if cfg.Enabled {
		s.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}
	return s
}

func (s *TwilioSender) SendOTP(_ context.Context, phone, code string) error {
	if !s.cfg.Enabled {
		s.logger.Info().Str("phone", phone).Msg("sms disabled, skipping send")
		metrics.NotificationsTotal.WithLabelValues("sms", "skipped").Inc()
		return nil
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.cfg.FromNumber)
	params.SetBody(fmt.Sprintf("Your We Meet Offline verification code is %s", code))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		metrics.NotificationsTotal.WithLabelValues("sms", "failed").Inc()
		return fmt.Errorf("sending sms: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("sms", "sent").Inc()
	return nil
}
