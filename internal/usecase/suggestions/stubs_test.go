package suggestions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"suggestion-bot/internal/domain"
)

type stubStore struct {
	mu          sync.Mutex
	records     map[string]domain.Suggestion
	transitions int
	seq         int
	failWith    error
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[string]domain.Suggestion)}
}

func (s *stubStore) Create(_ context.Context, in domain.NewSuggestion) (domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return domain.Suggestion{}, s.failWith
	}
	if _, ok := s.records[in.PresentationID]; ok {
		return domain.Suggestion{}, domain.ErrDuplicatePresentation
	}
	s.seq++
	rec := domain.Suggestion{
		ID:             fmt.Sprintf("S%d", s.seq),
		GuildID:        in.GuildID,
		AuthorID:       in.AuthorID,
		ChannelID:      in.ChannelID,
		PresentationID: in.PresentationID,
		Content:        in.Content,
		Status:         domain.StatusPending,
	}
	s.records[in.PresentationID] = rec
	return rec, nil
}

func (s *stubStore) FindByPresentation(_ context.Context, id string) (domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *stubStore) TransitionIfPending(_ context.Context, t domain.Transition) (domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return domain.Suggestion{}, s.failWith
	}
	rec, ok := s.records[t.PresentationID]
	if !ok {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	if rec.Status != domain.StatusPending {
		return domain.Suggestion{}, domain.ErrAlreadyDecided
	}
	s.transitions++
	rec.Status = t.Status
	rec.Reason = t.Reason
	rec.DeciderID = t.DeciderID
	s.records[t.PresentationID] = rec
	return rec, nil
}

func (s *stubStore) get(id string) domain.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

type stubChannels map[string]domain.ChannelConfig

func (c stubChannels) Lookup(_ context.Context, guildID, channelID string) (domain.ChannelConfig, bool, error) {
	cfg, ok := c[guildID+"/"+channelID]
	return cfg, ok, nil
}

type stubPresenter struct {
	id       string
	err      error
	received []domain.PresentationRequest
}

func (p *stubPresenter) Present(_ context.Context, req domain.PresentationRequest) (string, error) {
	p.received = append(p.received, req)
	return p.id, p.err
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []domain.NotificationRequest
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, req domain.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, req)
	return nil
}

var errDisk = errors.New("disk on fire")
