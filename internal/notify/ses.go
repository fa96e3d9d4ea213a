package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
)

// SES sends email using Amazon Simple Email Service
type SES struct {
	svc sesiface.SESAPI
}

// NewSES builds a sender. Empty keys fall back to the default AWS credential chain.
func NewSES(region, accessKeyID, secretKey string) (*SES, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if accessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKeyID, secretKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("ses: create session: %w", err)
	}
	return &SES{svc: ses.New(sess)}, nil
}

func (s *SES) Send(ctx context.Context, msg Message) error {
	raw, err := rawEmail(msg)
	if err != nil {
		return err
	}
	_, err = s.svc.SendRawEmailWithContext(ctx, &ses.SendRawEmailInput{
		RawMessage: &ses.RawMessage{Data: raw},
		Source:     aws.String(addressWithName(msg.FromName, msg.FromEmail)),
	})
	if err != nil {
		return fmt.Errorf("ses: send: %w", err)
	}
	return nil
}

var _ Sender = (*SES)(nil)
