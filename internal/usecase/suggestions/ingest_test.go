package suggestions

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
)

func TestIngestCreatesPendingSuggestion(t *testing.T) {
	store := newStubStore()
	channels := stubChannels{"G1/C42": {GuildID: "G1", ChannelID: "C42", AllowedRoleID: "R7", Emojis: domain.EmojiPair{First: "👍", Second: "👎"}}}
	presenter := &stubPresenter{id: "P100"}
	svc := NewService(store, channels, nil, zerolog.Nop())

	sg, req, err := svc.Ingest(context.Background(), SubmissionEvent{GuildID: "G1", ChannelID: "C42", AuthorID: "U1", AuthorTag: "user#1", Text: "Add dark mode"}, presenter)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sg.Status != domain.StatusPending || sg.Reason != "" {
		t.Fatalf("ожидали pending без причины, получили %+v", sg)
	}
	if sg.PresentationID != "P100" || sg.AuthorID != "U1" || sg.ChannelID != "C42" {
		t.Fatalf("неверная запись %+v", sg)
	}
	if req.Body != "Add dark mode" || req.StatusLabel != pendingLabel || req.Emojis.First != "👍" {
		t.Fatalf("неверная карточка %+v", req)
	}
	if len(presenter.received) != 1 {
		t.Fatalf("ожидали одну публикацию, получили %d", len(presenter.received))
	}
}

func TestIngestSkipsUnmanagedChannel(t *testing.T) {
	store := newStubStore()
	presenter := &stubPresenter{id: "P1"}
	svc := NewService(store, stubChannels{}, nil, zerolog.Nop())

	_, _, err := svc.Ingest(context.Background(), SubmissionEvent{GuildID: "G1", ChannelID: "C1", AuthorID: "U1", Text: "hello"}, presenter)
	if !errors.Is(err, domain.ErrSkipped) {
		t.Fatalf("ожидали ErrSkipped, получили %v", err)
	}
	if len(presenter.received) != 0 || len(store.records) != 0 {
		t.Fatal("в неуправляемом канале ничего не должно создаваться")
	}
}

func TestIngestSkipsEmptyText(t *testing.T) {
	channels := stubChannels{"G1/C1": {AllowedRoleID: "R1"}}
	svc := NewService(newStubStore(), channels, nil, zerolog.Nop())
	_, _, err := svc.Ingest(context.Background(), SubmissionEvent{GuildID: "G1", ChannelID: "C1", AuthorID: "U1", Text: "   "}, &stubPresenter{id: "P1"})
	if !errors.Is(err, domain.ErrSkipped) {
		t.Fatalf("ожидали ErrSkipped, получили %v", err)
	}
}

func TestIngestDuplicatePresentationIsInternalError(t *testing.T) {
	store := newStubStore()
	channels := stubChannels{"G1/C1": {AllowedRoleID: "R1"}}
	svc := NewService(store, channels, nil, zerolog.Nop())
	presenter := &stubPresenter{id: "P1"}
	ev := SubmissionEvent{GuildID: "G1", ChannelID: "C1", AuthorID: "U1", Text: "one"}
	if _, _, err := svc.Ingest(context.Background(), ev, presenter); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	_, _, err := svc.Ingest(context.Background(), ev, presenter)
	if !errors.Is(err, ErrInternalConsistency) || !errors.Is(err, ErrOrphanedPresentation) {
		t.Fatalf("ожидали ErrInternalConsistency и ErrOrphanedPresentation, получили %v", err)
	}
}

func TestIngestStoreFailureAfterPresentIsOrphaned(t *testing.T) {
	store := newStubStore()
	store.failWith = domain.Unavailable("create", errDisk)
	channels := stubChannels{"G1/C1": {AllowedRoleID: "R1"}}
	svc := NewService(store, channels, nil, zerolog.Nop())
	_, _, err := svc.Ingest(context.Background(), SubmissionEvent{GuildID: "G1", ChannelID: "C1", AuthorID: "U1", Text: "x"}, &stubPresenter{id: "P1"})
	if !errors.Is(err, ErrOrphanedPresentation) || !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("ожидали ErrOrphanedPresentation поверх ErrStoreUnavailable, получили %v", err)
	}
}

func TestIngestPresenterFailureCreatesNothing(t *testing.T) {
	store := newStubStore()
	channels := stubChannels{"G1/C1": {AllowedRoleID: "R1"}}
	svc := NewService(store, channels, nil, zerolog.Nop())
	_, _, err := svc.Ingest(context.Background(), SubmissionEvent{GuildID: "G1", ChannelID: "C1", AuthorID: "U1", Text: "x"}, &stubPresenter{err: errors.New("discord down")})
	if err == nil || errors.Is(err, ErrOrphanedPresentation) {
		t.Fatalf("ожидали ошибку публикации без карточки, получили %v", err)
	}
	if len(store.records) != 0 {
		t.Fatal("без карточки запись не создаётся")
	}
}
