package bot

import (
	"sync"
	"time"

	"suggestion-bot/internal/usecase/suggestions"
)

// pendingReason связывает сообщение-запрос причины с нажатой кнопкой.
type pendingReason struct {
	intent  suggestions.DecisionIntent
	card    string
	expires time.Time
}

type pendingReasons struct {
	mu    sync.Mutex
	items map[string]pendingReason
	ttl   time.Duration
	now   func() time.Time
}

func newPendingReasons(ttl time.Duration) *pendingReasons {
	return &pendingReasons{items: make(map[string]pendingReason), ttl: ttl, now: time.Now}
}

func (p *pendingReasons) put(key string, item pendingReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for k, v := range p.items {
		if now.After(v.expires) {
			delete(p.items, k)
		}
	}
	item.expires = now.Add(p.ttl)
	p.items[key] = item
}

// take возвращает запрос, только если отвечает тот же модератор и срок не истёк.
func (p *pendingReasons) take(key, actorID string) (pendingReason, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[key]
	if !ok || item.intent.ActorID != actorID {
		return pendingReason{}, false
	}
	delete(p.items, key)
	if p.now().After(item.expires) {
		return pendingReason{}, false
	}
	return item, true
}
