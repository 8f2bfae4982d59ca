package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-match-service/internal/domain"
)

// botNames is the themed display-name pool for simulated participants.
var botNames = []string{
	"ByteBandit", "NullPointer", "StackSmasher", "LoopLord", "BitFlipper",
	"SegFault", "RubberDuck", "MergeConflict", "OffByOne", "HeapHunter",
	"RaceCondition", "DeadlockDan", "CacheMiss", "GarbageCollector", "ForkBomb",
}

// Bot is a simulated participant profile: a fixed accuracy and a response-time
// window, both randomized at creation.
type Bot struct {
	ID          string
	DisplayName string
	Accuracy    float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// BotPool creates filler participants and schedules their answers. Name
// reservations are shared across matches and released per match.
type BotPool struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	inUse   map[string]struct{}
	byMatch map[string][]string
}

func NewBotPool() *BotPool {
	return &BotPool{
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		inUse:   make(map[string]struct{}),
		byMatch: make(map[string][]string),
	}
}

// CreateFillers produces count uniquely-named bots for a match. Names come
// from the themed pool while available; a numeric suffix is appended once the
// pool is exhausted.
func (p *BotPool) CreateFillers(matchID string, count int) []*Bot {
	p.mu.Lock()
	defer p.mu.Unlock()

	bots := make([]*Bot, 0, count)
	for i := 0; i < count; i++ {
		name := p.reserveNameLocked()
		p.byMatch[matchID] = append(p.byMatch[matchID], name)
		bots = append(bots, &Bot{
			ID:          uuid.NewString(),
			DisplayName: name,
			Accuracy:    0.4 + p.rnd.Float64()*0.5,
			MinDelay:    time.Duration(2+p.rnd.Intn(4)) * time.Second,
			MaxDelay:    time.Duration(8+p.rnd.Intn(8)) * time.Second,
		})
	}
	return bots
}

func (p *BotPool) reserveNameLocked() string {
	start := p.rnd.Intn(len(botNames))
	for i := 0; i < len(botNames); i++ {
		name := botNames[(start+i)%len(botNames)]
		if _, taken := p.inUse[name]; !taken {
			p.inUse[name] = struct{}{}
			return name
		}
	}
	// Pool exhausted; suffix until unique.
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s%d", botNames[start], n)
		if _, taken := p.inUse[name]; !taken {
			p.inUse[name] = struct{}{}
			return name
		}
	}
}

// DecideAnswer picks the correct option with probability equal to the bot's
// accuracy, otherwise a uniformly random incorrect option.
func (p *BotPool) DecideAnswer(b *Bot, q domain.Question) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rnd.Float64() < b.Accuracy {
		return q.CorrectID
	}
	wrong := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID != q.CorrectID {
			wrong = append(wrong, opt.ID)
		}
	}
	if len(wrong) == 0 {
		return q.CorrectID
	}
	return wrong[p.rnd.Intn(len(wrong))]
}

// ScheduleAnswer decides the bot's option now and delivers it after a random
// delay within the bot's response window, clamped to land before the round
// deadline. A delivery landing after the round moved on is the caller's
// generation guard to drop; the timer itself is fire-and-forget.
func (p *BotPool) ScheduleAnswer(b *Bot, q domain.Question, deadline time.Duration, deliver func(optionID string)) {
	option := p.DecideAnswer(b, q)

	p.mu.Lock()
	window := b.MaxDelay - b.MinDelay
	delay := b.MinDelay
	if window > 0 {
		delay += time.Duration(p.rnd.Int63n(int64(window)))
	}
	p.mu.Unlock()

	// Keep the delivery strictly inside the round.
	if margin := deadline / 10; delay > deadline-margin {
		delay = deadline - margin
	}
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() { deliver(option) })
}

// Release frees all name reservations made for the match.
func (p *BotPool) Release(matchID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range p.byMatch[matchID] {
		delete(p.inUse, name)
	}
	delete(p.byMatch, matchID)
}
