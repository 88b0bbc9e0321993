package telegram

import (
	"context"
	"strings"

	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of the bot API the transport and handlers use.
// *tgbotapi.BotAPI satisfies it; tests substitute a fake.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport adapts the bot API to the dispatcher's send contract.
type Transport struct {
	api sender
}

// NewTransport builds a dispatcher transport over the bot API.
func NewTransport(api sender) (*Transport, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bot api is required")
	}
	return &Transport{api: api}, nil
}

// SendText delivers a plain text message to one chat.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "send text")
	}
	return nil
}

// SendPhoto delivers a photo by URL with a caption to one chat.
func (t *Transport) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Accepts either an http(s) URL from the listing scrape or a Telegram
	// file_id from an admin-uploaded broadcast photo.
	var file tgbotapi.RequestFileData = tgbotapi.FileURL(photoURL)
	if !strings.HasPrefix(photoURL, "http") {
		file = tgbotapi.FileID(photoURL)
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = caption
	if _, err := t.api.Send(photo); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "send photo")
	}
	return nil
}
