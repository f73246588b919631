package sms

import (
	"context"

	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/model"
)

var _ model.SMSGateway = (*LogGateway)(nil)

// LogGateway writes codes to the log instead of sending them. Development only.
type LogGateway struct {
	logger *logger.Logger
}

func NewLogGateway(l *logger.Logger) *LogGateway {
	return &LogGateway{logger: l}
}

func (g *LogGateway) Send(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.logger.InfoContext(ctx, "SMS gateway: code dispatched", "phone", phone, "code", code)
	return nil
}
