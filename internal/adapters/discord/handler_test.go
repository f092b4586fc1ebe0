package discord

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/cache"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

type fakeSession struct {
	mu        sync.Mutex
	sent      []*discordgo.MessageSend
	edits     []*discordgo.MessageEdit
	deleted   []string
	reactions []string
	dms       []string
	responses []*discordgo.InteractionResponse
	followups []string
	calls     []string
	hangDM    bool
}

// requestContext извлекает контекст, переданный через discordgo.WithContext.
func requestContext(opts []discordgo.RequestOption) context.Context {
	req, _ := http.NewRequest(http.MethodGet, "https://discord.test", nil)
	cfg := &discordgo.RequestConfig{Request: req}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.Request.Context()
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSession) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, content)
	return &discordgo.Message{ID: "dm", ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: "P1", ChannelID: channelID, Embeds: data.Embeds}, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	if err := requestContext(opts).Err(); err != nil {
		return nil, err
	}
	f.record("edit")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) MessageReactionAdd(_, _, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emojiID)
	return nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.record("dm")
	if f.hangDM {
		ctx := requestContext(opts)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	if err := requestContext(opts).Err(); err != nil {
		return nil, err
	}
	f.record("followup")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data.Content)
	return &discordgo.Message{}, nil
}

type fixture struct {
	session *fakeSession
	store   *repo.Memory
	handler *Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	session := &fakeSession{}
	store := repo.NewMemory()
	if _, err := store.Insert(context.Background(), domain.ChannelConfig{
		GuildID: "G1", ChannelID: "C42", AllowedRoleID: "R7",
		Emojis: domain.EmojiPair{First: "👍", Second: "<:no:77>"},
	}); err != nil {
		t.Fatalf("insert config: %v", err)
	}
	log := zerolog.Nop()
	svc := suggestions.NewService(store, store, NewDMNotifier(session), log)
	h := NewHandler(session, svc, channels.NewService(store), cache.NewLocal(), 0, log)
	return fixture{session: session, store: store, handler: h}
}

func (fx fixture) submit(t *testing.T, id string) {
	t.Helper()
	fx.handler.handleMessage(context.Background(), &discordgo.Message{
		ID: id, GuildID: "G1", ChannelID: "C42", Content: "Add dark mode",
		Author: &discordgo.User{ID: "U1", Username: "alice"},
	})
}

func moderator(roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: "M1"}, Roles: roles}
}

func TestMessageBecomesSuggestion(t *testing.T) {
	fx := newFixture(t)
	fx.submit(t, "SRC1")
	fx.submit(t, "SRC1")

	if len(fx.session.sent) != 1 {
		t.Fatalf("expected one card, got %d", len(fx.session.sent))
	}
	if got := strings.Join(fx.session.reactions, ","); got != "👍,no:77" {
		t.Fatalf("unexpected reactions %q", got)
	}
	if len(fx.session.deleted) != 1 || fx.session.deleted[0] != "SRC1" {
		t.Fatalf("source message must be deleted, got %v", fx.session.deleted)
	}
	sg, err := fx.store.FindByPresentation(context.Background(), "P1")
	if err != nil || sg.Status != domain.StatusPending || sg.AuthorID != "U1" {
		t.Fatalf("unexpected record %+v %v", sg, err)
	}
}

// brokenCreate теряет соединение при создании записи.
type brokenCreate struct {
	*repo.Memory
}

func (b brokenCreate) Create(context.Context, domain.NewSuggestion) (domain.Suggestion, error) {
	return domain.Suggestion{}, domain.Unavailable("create suggestion", context.DeadlineExceeded)
}

func TestRedeliveryAfterStoreFailurePostsOneCard(t *testing.T) {
	fx := newFixture(t)
	log := zerolog.Nop()
	svc := suggestions.NewService(brokenCreate{fx.store}, fx.store, NewDMNotifier(fx.session), log)
	fx.handler = NewHandler(fx.session, svc, channels.NewService(fx.store), cache.NewLocal(), time.Minute, log)

	fx.submit(t, "SRC1")
	fx.submit(t, "SRC1")

	if len(fx.session.sent) != 1 {
		t.Fatalf("redelivered event must not post a second card, got %d", len(fx.session.sent))
	}
	if len(fx.session.deleted) != 0 {
		t.Fatalf("source message must stay when the record was not saved, got %v", fx.session.deleted)
	}
}

func TestBotAndUnmanagedMessagesIgnored(t *testing.T) {
	fx := newFixture(t)
	fx.handler.handleMessage(context.Background(), &discordgo.Message{
		ID: "B1", GuildID: "G1", ChannelID: "C42", Content: "beep",
		Author: &discordgo.User{ID: "BOT", Bot: true},
	})
	fx.handler.handleMessage(context.Background(), &discordgo.Message{
		ID: "X1", GuildID: "G1", ChannelID: "other", Content: "hi",
		Author: &discordgo.User{ID: "U1"},
	})
	if len(fx.session.sent) != 0 || len(fx.session.deleted) != 0 {
		t.Fatalf("nothing should be posted or deleted")
	}
}

func TestButtonOpensModalOrRejects(t *testing.T) {
	fx := newFixture(t)
	fx.submit(t, "SRC1")

	click := func(member *discordgo.Member) *discordgo.InteractionResponse {
		fx.handler.handleInteraction(context.Background(), &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   "G1",
			ChannelID: "C42",
			Member:    member,
			Message:   &discordgo.Message{ID: "P1"},
			Data:      discordgo.MessageComponentInteractionData{CustomID: ButtonID(domain.ActionAccept)},
		})
		return fx.session.responses[len(fx.session.responses)-1]
	}

	if resp := click(moderator("R7")); resp.Type != discordgo.InteractionResponseModal {
		t.Fatalf("expected modal, got %v", resp.Type)
	}
	resp := click(moderator("R1"))
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral || !strings.Contains(resp.Data.Content, "нет прав") {
		t.Fatalf("expected ephemeral refusal, got %+v", resp.Data)
	}
}

func (fx fixture) submitReason(ctx context.Context, reason string) {
	fx.handler.handleInteraction(ctx, &discordgo.Interaction{
		Type:      discordgo.InteractionModalSubmit,
		GuildID:   "G1",
		ChannelID: "C42",
		Member:    moderator("R7"),
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: ModalID(domain.ActionAccept, "P1"),
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: reasonInputID, Value: reason},
				}},
			},
		},
	})
}

func TestModalDecidesAndNotifies(t *testing.T) {
	fx := newFixture(t)
	fx.submit(t, "SRC1")

	submit := func(reason string) { fx.submitReason(context.Background(), reason) }

	submit("   ")
	if sg, _ := fx.store.FindByPresentation(context.Background(), "P1"); sg.Status != domain.StatusPending {
		t.Fatalf("empty reason must not change status")
	}

	submit("Great idea")
	sg, _ := fx.store.FindByPresentation(context.Background(), "P1")
	if sg.Status != domain.StatusAccepted || sg.Reason != "Great idea" || sg.DeciderID != "M1" {
		t.Fatalf("unexpected record %+v", sg)
	}
	if len(fx.session.edits) != 1 {
		t.Fatalf("expected card edit, got %d", len(fx.session.edits))
	}
	embed := (*fx.session.edits[0].Embeds)[0]
	if embed.Color != domain.ColorAccepted {
		t.Fatalf("unexpected color %x", embed.Color)
	}
	if len(fx.session.dms) != 1 || !strings.Contains(fx.session.dms[0], "<#C42>") || !strings.Contains(fx.session.dms[0], "Great idea") {
		t.Fatalf("unexpected dm %v", fx.session.dms)
	}

	submit("Changed my mind")
	last := fx.session.followups[len(fx.session.followups)-1]
	if !strings.Contains(last, "уже принято") {
		t.Fatalf("expected already decided message, got %q", last)
	}
	if len(fx.session.dms) != 1 {
		t.Fatalf("second decision must not notify")
	}
}

func TestModalRendersAndRepliesBeforeNotifying(t *testing.T) {
	fx := newFixture(t)
	fx.submit(t, "SRC1")
	fx.session.hangDM = true
	fx.handler.notifyTTL = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	fx.submitReason(ctx, "Great idea")

	sg, _ := fx.store.FindByPresentation(context.Background(), "P1")
	if sg.Status != domain.StatusAccepted {
		t.Fatalf("decision must be stored, got %+v", sg)
	}
	if len(fx.session.edits) != 1 {
		t.Fatalf("card must be re-rendered even if the author is unreachable, got %d edits", len(fx.session.edits))
	}
	if got := strings.Join(fx.session.calls, ","); got != "edit,followup,dm,followup" {
		t.Fatalf("unexpected call order %q", got)
	}
	if len(fx.session.followups) != 2 || !strings.Contains(fx.session.followups[0], "принято") || !strings.Contains(fx.session.followups[1], "не удалось уведомить") {
		t.Fatalf("unexpected followups %v", fx.session.followups)
	}
	if ctx.Err() != nil {
		t.Fatal("a hanging DM must not use up the event deadline")
	}
}

func TestSetupCommand(t *testing.T) {
	fx := newFixture(t)
	run := func(perms int64) string {
		fx.handler.handleInteraction(context.Background(), &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "G1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "A1"}, Permissions: perms},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: setupCommandName,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "C50"},
					{Name: "emoji1", Type: discordgo.ApplicationCommandOptionString, Value: "👍"},
					{Name: "emoji2", Type: discordgo.ApplicationCommandOptionString, Value: "👎"},
					{Name: "role", Type: discordgo.ApplicationCommandOptionRole, Value: "R9"},
				},
			},
		})
		return fx.session.responses[len(fx.session.responses)-1].Data.Content
	}

	if msg := run(0); msg != channels.ErrNotAdmin.Error() {
		t.Fatalf("expected admin refusal, got %q", msg)
	}
	if msg := run(discordgo.PermissionAdministrator); !strings.Contains(msg, "<#C50>") {
		t.Fatalf("unexpected reply %q", msg)
	}
	if msg := run(discordgo.PermissionAdministrator); msg != channels.ErrAlreadyConfigured.Error() {
		t.Fatalf("expected already configured, got %q", msg)
	}
	cfg, ok, _ := fx.store.Lookup(context.Background(), "G1", "C50")
	if !ok || cfg.AllowedRoleID != "R9" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
