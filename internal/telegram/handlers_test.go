package telegram

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/adilkhan-b/scentwatch/internal/notify"
	"github.com/adilkhan-b/scentwatch/internal/subscriptions"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const (
	testAdminID = int64(900)
	testUserID  = int64(100)
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeSender) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type fakeSubsService struct {
	ensured    []int64
	wishlist   []models.Product
	catalog    []models.Product
	addResults map[string]string
	removed    []string
	enabled    bool
	err        error
}

func newFakeSubsService() *fakeSubsService {
	return &fakeSubsService{addResults: make(map[string]string), enabled: true}
}

func (f *fakeSubsService) EnsureSubscription(ctx context.Context, telegramID int64) error {
	f.ensured = append(f.ensured, telegramID)
	return f.err
}

func (f *fakeSubsService) ResolveName(ctx context.Context, input string) (string, error) {
	name, ok := f.addResults[strings.ToLower(input)]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no matching fragrance")
	}
	return name, nil
}

func (f *fakeSubsService) AddToWishlist(ctx context.Context, telegramID int64, rawName string) (subscriptions.WishlistChange, error) {
	name, err := f.ResolveName(ctx, rawName)
	if err != nil {
		return subscriptions.WishlistChange{}, err
	}
	return subscriptions.WishlistChange{Name: name, Applied: true}, nil
}

func (f *fakeSubsService) RemoveFromWishlist(ctx context.Context, telegramID int64, rawName string) (subscriptions.WishlistChange, error) {
	name, err := f.ResolveName(ctx, rawName)
	if err != nil {
		return subscriptions.WishlistChange{}, err
	}
	f.removed = append(f.removed, name)
	return subscriptions.WishlistChange{Name: name, Applied: true}, nil
}

func (f *fakeSubsService) Wishlist(ctx context.Context, telegramID int64) ([]models.Product, error) {
	return f.wishlist, f.err
}

func (f *fakeSubsService) Catalog(ctx context.Context) ([]models.Product, error) {
	return f.catalog, f.err
}

func (f *fakeSubsService) NotifyStatus(ctx context.Context, telegramID int64) (bool, error) {
	return f.enabled, f.err
}

func (f *fakeSubsService) ToggleNotify(ctx context.Context, telegramID int64) (bool, error) {
	f.enabled = !f.enabled
	return f.enabled, f.err
}

type fakeBroadcaster struct {
	texts  []string
	photos []string
}

func (f *fakeBroadcaster) BroadcastText(ctx context.Context, text string) (notify.Report, error) {
	f.texts = append(f.texts, text)
	return notify.Report{Delivered: []int64{1, 2}}, nil
}

func (f *fakeBroadcaster) BroadcastPhoto(ctx context.Context, photoURL, caption string) (notify.Report, error) {
	f.photos = append(f.photos, photoURL)
	return notify.Report{Delivered: []int64{1, 2}}, nil
}

type handlerFixture struct {
	handler   *Handler
	api       *fakeSender
	subs      *fakeSubsService
	broadcast *fakeBroadcaster
	runtime   *notify.Runtime
	clock     time.Time
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	fx := &handlerFixture{
		api:       &fakeSender{},
		subs:      newFakeSubsService(),
		broadcast: &fakeBroadcaster{},
		runtime:   notify.NewRuntime(),
		clock:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	handler, err := NewHandler(HandlerParams{
		API:           fx.api,
		Subscriptions: fx.subs,
		Broadcaster:   fx.broadcast,
		Runtime:       fx.runtime,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		AdminChatID:   testAdminID,
		AdminCooldown: time.Minute,
		Now:           func() time.Time { return fx.clock },
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	fx.handler = handler
	return fx
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
	}}
}

func commandUpdate(chatID int64, command string) tgbotapi.Update {
	update := textUpdate(chatID, "/"+command)
	update.Message.Entities = []tgbotapi.MessageEntity{{
		Type:   "bot_command",
		Offset: 0,
		Length: len(command) + 1,
	}}
	return update
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		Data: data,
		From: &tgbotapi.User{ID: chatID},
	}}
}

func TestStartRegistersSubscription(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.handler.HandleUpdate(context.Background(), commandUpdate(testUserID, "start"))

	if len(fx.subs.ensured) != 1 || fx.subs.ensured[0] != testUserID {
		t.Fatalf("expected subscription for %d, got %v", testUserID, fx.subs.ensured)
	}
	if !strings.Contains(fx.api.lastText(), "Welcome") {
		t.Fatalf("expected welcome message, got %q", fx.api.lastText())
	}
}

func TestAddFlowResolvesAndConfirms(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.subs.addResults["bleu de chanel"] = "BLEU DE CHANEL"
	ctx := context.Background()

	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, buttonAddToList))
	if !strings.Contains(fx.api.lastText(), "Type the name") {
		t.Fatalf("expected prompt, got %q", fx.api.lastText())
	}

	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, "bleu de chanel"))
	if !strings.Contains(fx.api.lastText(), "was added to your wishlist") {
		t.Fatalf("expected confirmation, got %q", fx.api.lastText())
	}
	if !strings.Contains(fx.api.lastText(), "Bleu De Chanel") {
		t.Fatalf("expected title-cased name, got %q", fx.api.lastText())
	}
}

func TestAddFlowUnknownNameKeepsPrompting(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, buttonAddToList))
	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, "no such thing"))
	if !strings.Contains(fx.api.lastText(), "couldn't find a matching fragrance") {
		t.Fatalf("expected no-match reply, got %q", fx.api.lastText())
	}

	// State is preserved so the user can retry immediately.
	fx.subs.addResults["aventus"] = "AVENTUS"
	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, "aventus"))
	if !strings.Contains(fx.api.lastText(), "was added") {
		t.Fatalf("expected retry to work, got %q", fx.api.lastText())
	}
}

func TestBackToMenuClearsState(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, buttonAddToList))
	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, buttonBackToMenu))
	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, "random text"))

	// Free text outside a flow is ignored, not treated as a fragrance name.
	if strings.Contains(fx.api.lastText(), "was added") {
		t.Fatal("state must be cleared by back-to-menu")
	}
}

func TestCatalogListingChunksLongOutput(t *testing.T) {
	fx := newHandlerFixture(t)
	name := strings.Repeat("X", 60)
	for i := 0; i < 100; i++ {
		fx.subs.catalog = append(fx.subs.catalog, models.Product{
			ID:   uuid.New(),
			Name: name + strings.Repeat("Y", i%10),
		})
	}

	fx.handler.HandleUpdate(context.Background(), textUpdate(testUserID, buttonFragrances))

	texts := fx.api.texts()
	if len(texts) < 2 {
		t.Fatalf("expected chunked output, got %d messages", len(texts))
	}
	for i, text := range texts {
		if len(text) > messageLimit {
			t.Fatalf("message %d exceeds the length cap: %d", i, len(text))
		}
	}
}

func TestWishlistEmpty(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.handler.HandleUpdate(context.Background(), textUpdate(testUserID, buttonWishlist))

	texts := fx.api.texts()
	if len(texts) == 0 || !strings.Contains(texts[0], "empty") {
		t.Fatalf("expected empty-wishlist reply, got %v", texts)
	}
}

func TestDeleteCallbackRemovesWatch(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.subs.addResults["aventus"] = "AVENTUS"

	fx.handler.HandleUpdate(context.Background(), callbackUpdate(testUserID, callbackDeletePrefix+"AVENTUS"))

	if len(fx.subs.removed) != 1 || fx.subs.removed[0] != "AVENTUS" {
		t.Fatalf("expected removal, got %v", fx.subs.removed)
	}
	if !strings.Contains(fx.api.lastText(), "Deleted") {
		t.Fatalf("expected delete confirmation, got %q", fx.api.lastText())
	}
}

func TestToggleNotifyCallbackEditsMessage(t *testing.T) {
	fx := newHandlerFixture(t)
	update := callbackUpdate(testUserID, callbackToggleNotify)
	update.CallbackQuery.Message = &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: testUserID},
	}

	fx.handler.HandleUpdate(context.Background(), update)

	if fx.subs.enabled {
		t.Fatal("expected preference toggled off")
	}
	if len(fx.api.sent) == 0 {
		t.Fatal("expected an edit message send")
	}
}

func TestAdminMenuHiddenFromRegularUsers(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.handler.HandleUpdate(context.Background(), textUpdate(testUserID, buttonAdmin))
	if len(fx.api.sent) != 0 {
		t.Fatal("regular users must not see the admin menu")
	}

	fx.handler.HandleUpdate(context.Background(), textUpdate(testAdminID, buttonAdmin))
	if !strings.Contains(fx.api.lastText(), "Admin menu") {
		t.Fatalf("expected admin menu for the admin, got %q", fx.api.lastText())
	}
}

func TestPriorityToggleButton(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.handler.HandleUpdate(context.Background(), textUpdate(testAdminID, buttonPriority))

	if !fx.runtime.AdminPrioritize() {
		t.Fatal("expected priority mode enabled")
	}
	if !strings.Contains(fx.api.lastText(), "Priority mode is now on") {
		t.Fatalf("unexpected reply %q", fx.api.lastText())
	}
}

func TestBroadcastFlowWithCooldown(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.handler.HandleUpdate(ctx, textUpdate(testAdminID, buttonBroadcast))
	fx.handler.HandleUpdate(ctx, textUpdate(testAdminID, "maintenance tonight"))

	if len(fx.broadcast.texts) != 1 || fx.broadcast.texts[0] != "maintenance tonight" {
		t.Fatalf("expected one broadcast, got %v", fx.broadcast.texts)
	}
	if !strings.Contains(fx.api.lastText(), "delivered to 2 users") {
		t.Fatalf("expected delivery summary, got %q", fx.api.lastText())
	}

	// A second broadcast inside the cooldown window is rejected.
	fx.handler.HandleUpdate(ctx, textUpdate(testAdminID, buttonBroadcast))
	fx.handler.HandleUpdate(ctx, textUpdate(testAdminID, "again"))
	if len(fx.broadcast.texts) != 1 {
		t.Fatalf("cooldown must block the second broadcast, got %v", fx.broadcast.texts)
	}

	// After the window passes it is allowed again.
	fx.clock = fx.clock.Add(2 * time.Minute)
	fx.handler.HandleUpdate(ctx, textUpdate(testAdminID, "third"))
	if len(fx.broadcast.texts) != 2 {
		t.Fatalf("expected broadcast after cooldown, got %v", fx.broadcast.texts)
	}
}

func TestBroadcastIgnoredForRegularUsers(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, buttonBroadcast))
	fx.handler.HandleUpdate(ctx, textUpdate(testUserID, "sneaky message"))

	if len(fx.broadcast.texts) != 0 {
		t.Fatal("regular users must not broadcast")
	}
}
