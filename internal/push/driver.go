package push

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/novenad/internal/config"
	"github.com/fyrsmithlabs/novenad/internal/logging"
)

// New builds the sender selected by cfg.Driver. The returned close
// function releases any connection the sender holds.
func New(ctx context.Context, cfg config.PushConfig, logger *logging.Logger) (Sender, func(), error) {
	switch cfg.Driver {
	case config.DriverFCM:
		creds, err := cfg.CredentialsJSON()
		if err != nil {
			return nil, nil, fmt.Errorf("fcm driver: %w", err)
		}
		s, err := NewFCMSender(ctx, FCMConfig{
			CredentialsJSON: creds,
			ProjectID:       cfg.ProjectID,
			Endpoint:        cfg.Endpoint,
			RateLimit:       cfg.RateLimit,
			Burst:           cfg.Burst,
			AndroidChannel:  cfg.AndroidChannel,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case config.DriverNATS:
		nc, err := ConnectNATS(cfg.NATSURL, "novenad")
		if err != nil {
			return nil, nil, err
		}
		s, err := NewNATSSender(nc, cfg.NATSSubject)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return s, func() { _ = nc.Drain() }, nil

	case config.DriverLog:
		return NewLogSender(logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown push driver %q", cfg.Driver)
}
