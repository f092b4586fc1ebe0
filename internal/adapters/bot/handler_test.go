package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

const groupID int64 = -100500

type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.MessageConfig
	edits    []tgbotapi.EditMessageTextConfig
	deleted  []int
	answers  []string
	statuses map[int64]string
	failDM   bool
	calls    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100, statuses: map[int64]string{}}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if f.failDM && msg.ChatID > 0 {
		return tgbotapi.Message{}, errors.New("bot was blocked by the user")
	}
	f.nextID++
	f.sent = append(f.sent, msg)
	if msg.ChatID > 0 {
		f.calls = append(f.calls, "dm")
	} else {
		f.calls = append(f.calls, "send")
	}
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: msg.ChatID}, Text: msg.Text}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.EditMessageTextConfig:
		f.edits = append(f.edits, v)
		f.calls = append(f.calls, "edit")
	case tgbotapi.DeleteMessageConfig:
		f.deleted = append(f.deleted, v.MessageID)
	case tgbotapi.CallbackConfig:
		f.answers = append(f.answers, v.Text)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[cfg.UserID]
	if !ok {
		status = "member"
	}
	return tgbotapi.ChatMember{Status: status}, nil
}

func (f *fakeAPI) lastSent() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) lastAnswer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[len(f.answers)-1]
}

type fixture struct {
	api     *fakeAPI
	store   *repo.Memory
	handler *Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	api := newFakeAPI()
	api.statuses[7] = "administrator"
	store := repo.NewMemory()
	log := zerolog.Nop()
	svc := suggestions.NewService(store, store, NewNotifier(api), log)
	h := NewHandler(api, svc, channels.NewService(store), nil, 0, time.Minute, log)
	return fixture{api: api, store: store, handler: h}
}

func group() *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: groupID, Type: "supergroup", Title: "Ideas"}
}

func command(from int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "admin"},
		Chat:      group(),
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func (fx fixture) setup(t *testing.T) {
	t.Helper()
	fx.handler.handleMessage(context.Background(), command(7, "/setup_suggestions 👍 👎 administrator"))
	if _, ok, _ := fx.store.Lookup(context.Background(), "-100500", "-100500"); !ok {
		t.Fatalf("chat must be configured, reply: %q", fx.api.lastSent().Text)
	}
}

func (fx fixture) submit(t *testing.T) string {
	t.Helper()
	fx.handler.handleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 42, FirstName: "Alice"},
		Chat:      group(),
		Text:      "Add dark mode",
	})
	card := fx.api.lastSent()
	if card.ChatID != groupID || !strings.Contains(card.Text, "Add dark mode") {
		t.Fatalf("unexpected card %+v", card)
	}
	return card.Text
}

func (fx fixture) click(userID int64, cardID int, card, data string) {
	fx.handler.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID, UserName: "mod"},
		Message: &tgbotapi.Message{MessageID: cardID, Chat: group(), Text: card},
		Data:    data,
	})
}

func (fx fixture) answerPrompt(userID int64, promptID int, text string) {
	var promptText string
	for _, m := range fx.api.sent {
		if strings.HasSuffix(m.Text, promptMarker) {
			promptText = m.Text
		}
	}
	fx.handler.handleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 500,
		From:      &tgbotapi.User{ID: userID},
		Chat:      group(),
		Text:      text,
		ReplyToMessage: &tgbotapi.Message{
			MessageID: promptID,
			Chat:      group(),
			From:      &tgbotapi.User{ID: 1, IsBot: true},
			Text:      promptText,
		},
	})
}

func TestSetupRequiresAdmin(t *testing.T) {
	fx := newFixture(t)
	fx.handler.handleMessage(context.Background(), command(9, "/setup_suggestions 👍 👎 administrator"))
	if got := fx.api.lastSent().Text; got != channels.ErrNotAdmin.Error() {
		t.Fatalf("unexpected reply %q", got)
	}
	fx.setup(t)
	fx.handler.handleMessage(context.Background(), command(7, "/setup_suggestions 👍 👎 administrator"))
	if got := fx.api.lastSent().Text; got != channels.ErrAlreadyConfigured.Error() {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSubmissionAndDecisionFlow(t *testing.T) {
	fx := newFixture(t)
	fx.setup(t)
	card := fx.submit(t)
	cardID := fx.api.nextID
	presentationID := PresentationID(groupID, cardID)

	if len(fx.api.deleted) != 1 || fx.api.deleted[0] != 10 {
		t.Fatalf("source message must be deleted, got %v", fx.api.deleted)
	}

	fx.click(9, cardID, card, callbackPrefix+"accept")
	if !strings.Contains(fx.api.lastAnswer(), "нет прав") {
		t.Fatalf("member must be refused, got %q", fx.api.lastAnswer())
	}

	fx.click(7, cardID, card, callbackPrefix+"accept")
	prompt := fx.api.lastSent()
	if _, ok := prompt.ReplyMarkup.(tgbotapi.ForceReply); !ok {
		t.Fatalf("expected force reply prompt, got %+v", prompt)
	}
	promptID := fx.api.nextID

	// чужой ответ не считается решением и не становится предложением
	sentBefore := len(fx.api.sent)
	fx.answerPrompt(9, promptID, "hijack")
	if sg, _ := fx.store.FindByPresentation(context.Background(), presentationID); sg.Status != domain.StatusPending {
		t.Fatalf("only the moderator who clicked may decide")
	}
	if len(fx.api.sent) != sentBefore+1 || fx.api.lastSent().Text != stalePrompt {
		t.Fatalf("foreign reply must get a hint, got %q", fx.api.lastSent().Text)
	}

	fx.answerPrompt(7, promptID, "   ")
	if sg, _ := fx.store.FindByPresentation(context.Background(), presentationID); sg.Status != domain.StatusPending {
		t.Fatalf("empty reason must not change status")
	}

	fx.answerPrompt(7, promptID, "Great idea")
	sg, err := fx.store.FindByPresentation(context.Background(), presentationID)
	if err != nil || sg.Status != domain.StatusAccepted || sg.Reason != "Great idea" || sg.DeciderID != "7" {
		t.Fatalf("unexpected record %+v %v", sg, err)
	}
	if len(fx.api.edits) != 1 || !strings.Contains(fx.api.edits[0].Text, "Причина: Great idea") {
		t.Fatalf("card must be updated, got %+v", fx.api.edits)
	}

	if got := strings.Join(fx.api.calls[len(fx.api.calls)-3:], ","); got != "edit,send,dm" {
		t.Fatalf("card and moderator reply must precede the notification, got %q", got)
	}

	var dm *tgbotapi.MessageConfig
	for i := range fx.api.sent {
		if fx.api.sent[i].ChatID == 42 {
			dm = &fx.api.sent[i]
		}
	}
	if dm == nil || !strings.Contains(dm.Text, "принято") {
		t.Fatalf("author must be notified")
	}

	fx.click(7, cardID, card, callbackPrefix+"reject")
	if !strings.Contains(fx.api.lastAnswer(), "уже принято") {
		t.Fatalf("expected already decided, got %q", fx.api.lastAnswer())
	}
}

func TestNotificationFailureKeepsDecision(t *testing.T) {
	fx := newFixture(t)
	fx.setup(t)
	card := fx.submit(t)
	cardID := fx.api.nextID
	fx.click(7, cardID, card, callbackPrefix+"reject")
	promptID := fx.api.nextID

	fx.api.failDM = true
	fx.answerPrompt(7, promptID, "Out of scope")
	sg, _ := fx.store.FindByPresentation(context.Background(), PresentationID(groupID, cardID))
	if sg.Status != domain.StatusRejected {
		t.Fatalf("decision must persist, got %s", sg.Status)
	}
	if !strings.Contains(fx.api.lastSent().Text, "не удалось уведомить") {
		t.Fatalf("moderator must learn about failed notification, got %q", fx.api.lastSent().Text)
	}
}

func TestExpiredPromptAnswerIsNotASubmission(t *testing.T) {
	fx := newFixture(t)
	fx.setup(t)
	card := fx.submit(t)
	cardID := fx.api.nextID
	now := time.Now()
	fx.handler.pending.now = func() time.Time { return now }
	fx.click(7, cardID, card, callbackPrefix+"accept")
	promptID := fx.api.nextID

	now = now.Add(2 * time.Minute)
	sentBefore, deletedBefore := len(fx.api.sent), len(fx.api.deleted)
	fx.answerPrompt(7, promptID, "Great idea")

	if sg, _ := fx.store.FindByPresentation(context.Background(), PresentationID(groupID, cardID)); sg.Status != domain.StatusPending {
		t.Fatalf("expired prompt must not decide, got %s", sg.Status)
	}
	if len(fx.api.sent) != sentBefore+1 || fx.api.lastSent().Text != stalePrompt {
		t.Fatalf("expected stale prompt hint, got %q", fx.api.lastSent().Text)
	}
	if len(fx.api.deleted) != deletedBefore {
		t.Fatalf("moderator reply must not be deleted, got %v", fx.api.deleted)
	}
	if _, err := fx.store.FindByPresentation(context.Background(), PresentationID(groupID, fx.api.nextID)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reason text must not become a suggestion")
	}
}

func TestUnmanagedChatIgnored(t *testing.T) {
	fx := newFixture(t)
	fx.handler.handleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 10, From: &tgbotapi.User{ID: 42}, Chat: group(), Text: "hello",
	})
	if len(fx.api.sent) != 0 || len(fx.api.deleted) != 0 {
		t.Fatalf("nothing should happen in an unmanaged chat")
	}
}

func TestPresentationID(t *testing.T) {
	chat, msg, err := ParsePresentationID(PresentationID(-100, 5))
	if err != nil || chat != -100 || msg != 5 {
		t.Fatalf("got %d %d %v", chat, msg, err)
	}
	if _, _, err := ParsePresentationID("nope"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApplyUpdateReplacesStatus(t *testing.T) {
	card := RenderCard(domain.PresentationRequest{Title: "T", Body: "B", AuthorTag: "@a", StatusLabel: "Ожидает"})
	got := ApplyUpdate(card, domain.PresentationUpdateRequest{StatusLabel: "Отклонено", Reason: "нет"})
	if strings.Contains(got, "Ожидает") || !strings.HasSuffix(got, "Статус: Отклонено\nПричина: нет") {
		t.Fatalf("unexpected card %q", got)
	}
}

func TestPendingReasonsExpire(t *testing.T) {
	p := newPendingReasons(time.Minute)
	now := time.Now()
	p.now = func() time.Time { return now }
	p.put("k", pendingReason{intent: suggestions.DecisionIntent{ActorID: "1"}})
	now = now.Add(2 * time.Minute)
	if _, ok := p.take("k", "1"); ok {
		t.Fatalf("expired prompt must not be returned")
	}
}
