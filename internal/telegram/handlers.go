package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adilkhan-b/scentwatch/internal/notify"
	"github.com/adilkhan-b/scentwatch/internal/subscriptions"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// messageLimit is Telegram's hard cap on message text length.
const messageLimit = 4096

const broadcastAction = "broadcast"

var titleCaser = cases.Title(language.English)

// broadcaster is the dispatcher surface the admin menu needs.
type broadcaster interface {
	BroadcastText(ctx context.Context, text string) (notify.Report, error)
	BroadcastPhoto(ctx context.Context, photoURL, caption string) (notify.Report, error)
}

// HandlerParams group dependencies for the update handler.
type HandlerParams struct {
	API           sender
	Subscriptions subscriptions.Service
	Broadcaster   broadcaster
	Runtime       *notify.Runtime
	Logger        *logger.Logger
	AdminChatID   int64
	AdminCooldown time.Duration
	// Now may be nil; tests inject a fixed clock.
	Now func() time.Time
}

// Handler routes incoming bot updates to wishlist, settings, and admin
// actions. Errors are reported to the chat and logged, never returned to
// the poll loop.
type Handler struct {
	api           sender
	subs          subscriptions.Service
	broadcast     broadcaster
	runtime       *notify.Runtime
	logg          *logger.Logger
	adminChatID   int64
	adminCooldown time.Duration
	now           func() time.Time
	fsm           *stateMachine
}

// NewHandler builds the update handler.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bot api is required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription service is required")
	}
	if params.Broadcaster == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcaster is required")
	}
	if params.Runtime == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "runtime state is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		api:           params.API,
		subs:          params.Subscriptions,
		broadcast:     params.Broadcaster,
		runtime:       params.Runtime,
		logg:          params.Logger,
		adminChatID:   params.AdminChatID,
		adminCooldown: params.AdminCooldown,
		now:           now,
		fsm:           newStateMachine(),
	}, nil
}

// HandleUpdate processes one long-poll update.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctx = h.logg.WithChatID(ctx, chatID)

	if msg.IsCommand() {
		if msg.Command() == "start" {
			h.handleStart(ctx, chatID)
		}
		return
	}

	switch msg.Text {
	case buttonBackToMenu:
		h.fsm.clear(chatID)
		h.reply(ctx, chatID, "Main menu", mainKeyboard(h.isAdmin(chatID)))
		return
	case buttonWishlist:
		h.fsm.clear(chatID)
		h.handleWishlist(ctx, chatID)
		return
	case buttonFragrances:
		h.fsm.clear(chatID)
		h.handleCatalog(ctx, chatID)
		return
	case buttonSettings:
		h.fsm.clear(chatID)
		h.handleSettings(ctx, chatID)
		return
	case buttonAddToList:
		h.fsm.set(chatID, stateAdding)
		h.reply(ctx, chatID, "Type the name of a fragrance you want to add", nil)
		return
	case buttonAdmin:
		if h.isAdmin(chatID) {
			h.fsm.clear(chatID)
			h.reply(ctx, chatID, "Admin menu", adminKeyboard())
		}
		return
	case buttonPriority:
		if h.isAdmin(chatID) {
			h.handlePriorityToggle(ctx, chatID)
		}
		return
	case buttonBroadcast:
		if h.isAdmin(chatID) {
			h.fsm.set(chatID, stateBroadcast)
			h.reply(ctx, chatID, "Send the message to broadcast to all users", backToMenuKeyboard())
		}
		return
	}

	switch h.fsm.get(chatID) {
	case stateAdding:
		h.handleAddInput(ctx, chatID, msg.Text)
	case stateBroadcast:
		if h.isAdmin(chatID) {
			h.handleBroadcastInput(ctx, chatID, msg)
		}
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64) {
	if err := h.subs.EnsureSubscription(ctx, chatID); err != nil {
		h.replyError(ctx, chatID, "register subscription", err)
		return
	}
	h.reply(ctx, chatID, "Welcome to Montagne Parfums fragrance tracker!", mainKeyboard(h.isAdmin(chatID)))
}

func (h *Handler) handleWishlist(ctx context.Context, chatID int64) {
	products, err := h.subs.Wishlist(ctx, chatID)
	if err != nil {
		h.replyError(ctx, chatID, "show wishlist", err)
		return
	}

	if len(products) == 0 {
		h.reply(ctx, chatID, "Your wishlist is empty.", nil)
	} else {
		for _, product := range products {
			h.reply(ctx, chatID, productLine(product), deleteMarkup(product.Name))
		}
	}
	h.reply(ctx, chatID,
		"If you want to add a new fragrance, press \"Add fragrance to wishlist\" below",
		addToWishlistKeyboard())
}

// handleCatalog lists every known fragrance, split into chunks that stay
// under the message length cap.
func (h *Handler) handleCatalog(ctx context.Context, chatID int64) {
	products, err := h.subs.Catalog(ctx)
	if err != nil {
		h.replyError(ctx, chatID, "list fragrances", err)
		return
	}
	if len(products) == 0 {
		h.reply(ctx, chatID, "List of fragrances is empty.", nil)
		return
	}

	var chunk strings.Builder
	for _, product := range products {
		line := productLine(product) + "\n"
		if chunk.Len()+len(line) > messageLimit {
			h.reply(ctx, chatID, strings.TrimSpace(chunk.String()), nil)
			chunk.Reset()
		}
		chunk.WriteString(line)
	}
	if chunk.Len() > 0 {
		h.reply(ctx, chatID, strings.TrimSpace(chunk.String()), nil)
	}
}

func (h *Handler) handleSettings(ctx context.Context, chatID int64) {
	enabled, err := h.subs.NotifyStatus(ctx, chatID)
	if err != nil {
		h.replyError(ctx, chatID, "read settings", err)
		return
	}
	h.reply(ctx, chatID, "Your notification status:", notifyStatusMarkup(enabled))
}

func (h *Handler) handleAddInput(ctx context.Context, chatID int64, input string) {
	change, err := h.subs.AddToWishlist(ctx, chatID, input)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			h.reply(ctx, chatID,
				"Sorry, we couldn't find a matching fragrance. Please try again with a different name.", nil)
			return
		}
		h.replyError(ctx, chatID, "add to wishlist", err)
		return
	}

	h.fsm.clear(chatID)
	text := fmt.Sprintf("%s was added to your wishlist!", displayName(change.Name))
	if !change.Applied {
		text = fmt.Sprintf("%s is already in your wishlist!", displayName(change.Name))
	}
	h.reply(ctx, chatID, text, addMoreMarkup())
}

func (h *Handler) handlePriorityToggle(ctx context.Context, chatID int64) {
	enabled := h.runtime.ToggleAdminPrioritize()
	status := "off"
	if enabled {
		status = "on"
	}
	h.logg.Info(h.logg.WithField(ctx, "enabled", enabled), "admin toggled priority mode")
	h.reply(ctx, chatID, "Priority mode is now "+status+".", adminKeyboard())
}

func (h *Handler) handleBroadcastInput(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	if !h.runtime.AllowAction(broadcastAction, h.adminCooldown, h.now()) {
		h.reply(ctx, chatID, "Broadcast is on cooldown, try again in a minute.", nil)
		return
	}
	h.fsm.clear(chatID)

	var report notify.Report
	var err error
	if len(msg.Photo) > 0 {
		// Largest resolution is last in the photo size list.
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		report, err = h.broadcast.BroadcastPhoto(ctx, fileID, msg.Caption)
	} else {
		report, err = h.broadcast.BroadcastText(ctx, msg.Text)
	}
	if err != nil {
		h.replyError(ctx, chatID, "broadcast", err)
		return
	}
	h.reply(ctx, chatID,
		fmt.Sprintf("Broadcast delivered to %d users, %d failed.", len(report.Delivered), len(report.Failed)),
		adminKeyboard())
}

func (h *Handler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.From.ID
	ctx = h.logg.WithChatID(ctx, chatID)

	switch {
	case callback.Data == callbackAddMore:
		h.fsm.set(chatID, stateAdding)
		h.answerCallback(ctx, callback.ID, "")
		h.reply(ctx, chatID, "Type the name of a fragrance you want to add", nil)

	case callback.Data == callbackToggleNotify:
		enabled, err := h.subs.ToggleNotify(ctx, chatID)
		if err != nil {
			h.answerCallback(ctx, callback.ID, "Could not update your notification status.")
			h.logg.Error(ctx, "toggle notify failed", err)
			return
		}
		h.answerCallback(ctx, callback.ID, "")
		if callback.Message != nil {
			edit := tgbotapi.NewEditMessageTextAndMarkup(
				chatID, callback.Message.MessageID, "Your notification status:", notifyStatusMarkup(enabled))
			if _, err := h.api.Send(edit); err != nil {
				h.logg.Error(ctx, "edit settings message failed", err)
			}
		}

	case strings.HasPrefix(callback.Data, callbackDeletePrefix):
		h.handleDeleteCallback(ctx, callback)
	}
}

func (h *Handler) handleDeleteCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.From.ID
	name := strings.TrimPrefix(callback.Data, callbackDeletePrefix)

	change, err := h.subs.RemoveFromWishlist(ctx, chatID, name)
	if err != nil || !change.Applied {
		h.answerCallback(ctx, callback.ID, "Item not found in wishlist")
		if err != nil {
			h.logg.Error(ctx, "wishlist delete failed", err)
		}
		return
	}
	h.answerCallback(ctx, callback.ID, "")
	h.reply(ctx, chatID, "Deleted: "+displayName(change.Name), nil)
}

func (h *Handler) isAdmin(chatID int64) bool {
	return h.adminChatID != 0 && chatID == h.adminChatID
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := h.api.Send(msg); err != nil {
		h.logg.Error(ctx, "send reply failed", err)
	}
}

func (h *Handler) replyError(ctx context.Context, chatID int64, action string, err error) {
	h.logg.Error(ctx, action+" failed", err)
	h.reply(ctx, chatID, "An error occurred while processing your request. Please try again later.", nil)
}

func (h *Handler) answerCallback(ctx context.Context, callbackID, text string) {
	answer := tgbotapi.NewCallback(callbackID, text)
	if _, err := h.api.Request(answer); err != nil {
		h.logg.Error(ctx, "answer callback failed", err)
	}
}

func productLine(product models.Product) string {
	symbol := "✅"
	if product.SoldOut {
		symbol = "❌"
	}
	return symbol + " " + displayName(product.Name)
}

// displayName renders the uppercase catalog key in title case for chat.
func displayName(name string) string {
	return titleCaser.String(strings.ToLower(name))
}
