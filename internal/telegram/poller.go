package telegram

import (
	"context"
	"fmt"

	"github.com/adilkhan-b/scentwatch/pkg/config"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Poller drives the long-poll update loop.
type Poller struct {
	api         *tgbotapi.BotAPI
	handler     *Handler
	logg        *logger.Logger
	pollTimeout int
}

// NewAPI authenticates against the bot API with the configured token.
func NewAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authenticate bot")
	}
	return api, nil
}

// NewPoller builds the update poller.
func NewPoller(api *tgbotapi.BotAPI, handler *Handler, logg *logger.Logger, cfg config.TelegramConfig) (*Poller, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bot api is required")
	}
	if handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "handler is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	timeout := int(cfg.PollTimeout.Seconds())
	if timeout <= 0 {
		timeout = 30
	}
	return &Poller{api: api, handler: handler, logg: logg, pollTimeout: timeout}, nil
}

// Run consumes updates until the context is canceled. Handler panics are
// contained per update so one bad message cannot kill the loop.
func (p *Poller) Run(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = p.pollTimeout
	updates := p.api.GetUpdatesChan(updateCfg)

	p.logg.Info(ctx, "telegram poller started")
	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.logg.Info(ctx, "telegram poller stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			p.safeHandle(ctx, update)
		}
	}
}

func (p *Poller) safeHandle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			p.logg.Error(ctx, "update handler panicked", pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", r)))
		}
	}()
	p.handler.HandleUpdate(ctx, update)
}
