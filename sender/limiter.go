package sender

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
	defaultMaxChats   = 10000
)

// throttle applies the global send limit and one limit per chat.
// Group chats (negative ids) get their own, slower, limit when configured.
type throttle struct {
	global *rate.Limiter

	perChat, group rate.Limit
	perChatBurst   int
	groupBurst     int
	maxChats       int

	mu    sync.RWMutex
	chats map[string]*chatLimiter

	stop chan struct{}
	done chan struct{}
}

type chatLimiter struct {
	*rate.Limiter
	lastUsed atomic.Int64 // UnixNano
}

func newThrottle(cfg Config) *throttle {
	t := &throttle{
		global:       rate.NewLimiter(rate.Limit(cfg.GlobalRPS), cfg.GlobalBurst),
		perChat:      rate.Limit(cfg.PerChatRPS),
		perChatBurst: cfg.PerChatBurst,
		group:        rate.Limit(cfg.GroupRPS),
		groupBurst:   cfg.GroupBurst,
		maxChats:     cfg.MaxChatLimiters,
		chats:        make(map[string]*chatLimiter),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	if t.maxChats <= 0 {
		t.maxChats = defaultMaxChats
	}
	go t.sweepLoop()
	return t
}

// wait blocks until both the chat and the global limiter allow a send.
func (t *throttle) wait(ctx context.Context, chatID string) error {
	if chatID != "" {
		if err := t.chat(chatID).Wait(ctx); err != nil {
			return err
		}
	}
	return t.global.Wait(ctx)
}

func (t *throttle) chat(chatID string) *chatLimiter {
	now := time.Now().UnixNano()

	t.mu.RLock()
	l, ok := t.chats[chatID]
	t.mu.RUnlock()
	if ok {
		l.lastUsed.Store(now)
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok = t.chats[chatID]; ok {
		l.lastUsed.Store(now)
		return l
	}
	if len(t.chats) >= t.maxChats {
		t.evictOldestLocked(now)
	}

	limit, burst := t.perChat, t.perChatBurst
	if t.group > 0 && isGroupChat(chatID) {
		limit, burst = t.group, t.groupBurst
	}
	l = &chatLimiter{Limiter: rate.NewLimiter(limit, burst)}
	l.lastUsed.Store(now)
	t.chats[chatID] = l
	return l
}

func (t *throttle) evictOldestLocked(now int64) {
	oldestKey, oldest := "", now
	for k, l := range t.chats {
		if used := l.lastUsed.Load(); used < oldest {
			oldestKey, oldest = k, used
		}
	}
	if oldestKey != "" {
		delete(t.chats, oldestKey)
	}
}

// sweep drops chat limiters idle for longer than limiterIdleAfter.
func (t *throttle) sweep(now time.Time) {
	threshold := now.Add(-limiterIdleAfter).UnixNano()

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, l := range t.chats {
		if l.lastUsed.Load() < threshold {
			delete(t.chats, k)
		}
	}
}

func (t *throttle) sweepLoop() {
	defer close(t.done)
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}

// close stops the sweeper and waits for it to exit. Call once.
func (t *throttle) close() {
	close(t.stop)
	<-t.done
}

func (t *throttle) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chats)
}

func isGroupChat(chatID string) bool {
	id, err := strconv.ParseInt(chatID, 10, 64)
	return err == nil && id < 0
}
