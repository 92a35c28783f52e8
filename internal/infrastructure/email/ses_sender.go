package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
)

// SESAPI is the part of the SES client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	lg     zerolog.Logger
	client SESAPI
	from   string
}

// NewSESSender builds an SES client from the default AWS credential chain.
func NewSESSender(ctx context.Context, region, from string, lg zerolog.Logger) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSenderWithClient(ses.NewFromConfig(cfg), from, lg), nil
}

func NewSESSenderWithClient(client SESAPI, from string, lg zerolog.Logger) *SESSender {
	return &SESSender{
		lg:     lg.With().Str("component", "ses_sender").Logger(),
		client: client,
		from:   from,
	}
}

func (s *SESSender) Send(ctx context.Context, msg reset.Message) error {
	body := &types.Body{
		Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		s.lg.Error().Err(err).Msg("ses send failed")
		var rejected *types.MessageRejected
		if errors.As(err, &rejected) {
			return PermanentError{msg: "ses rejected message: " + err.Error()}
		}
		return TemporaryError{msg: "ses send failed: " + err.Error()}
	}

	s.lg.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("ses send ok")
	return nil
}
