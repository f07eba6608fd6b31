package push

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/novenad/internal/logging"
	"go.uber.org/zap"
)

// LogSender logs messages instead of delivering them.
type LogSender struct {
	logger *logging.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender logs through logger, or discards when logger is nil.
func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSender{logger: logger.Named("push")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("%w: empty device token", ErrPermanent)
	}
	s.logger.Info(ctx, "push message",
		zap.String("notification.id", msg.ID),
		logging.Token("token", msg.Token),
		zap.String("platform", msg.Platform),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data),
	)
	return nil
}
