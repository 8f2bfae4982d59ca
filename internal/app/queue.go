package app

import (
	"math/rand"
	"sync"
	"time"

	"quiz-match-service/internal/domain"
)

// ClientNotifier pushes outbound events to one connected player. Send must
// never block; slow consumers are the transport's problem.
type ClientNotifier interface {
	Send(ev domain.Event)
}

// Seat is a human player handed from the queue to the match engine.
type Seat struct {
	ID          string
	DisplayName string
	Client      ClientNotifier
}

// MatchStarter consumes a formed player set. fillerCount is how many simulated
// participants the engine should add on top of the seats. HasLiveSeat reports
// whether a participant is still seated in an uncompleted match; the queue uses
// it to keep one participant out of two concurrent matches.
type MatchStarter interface {
	StartMatch(seats []Seat, fillerCount int, prefs domain.Preferences) *Match
	HasLiveSeat(participantID string) bool
}

type bucketKey struct {
	category   string
	difficulty string
}

type queueEntry struct {
	id       string
	name     string
	prefs    domain.Preferences
	joinedAt time.Time
	client   ClientNotifier
	timer    *time.Timer
}

// QueueManager holds waiting players in buckets keyed by (category,
// difficulty). Each entrant carries its own fill timer; when it fires with the
// bucket still under the minimum, the bucket drains into a filler-padded match
// so nobody waits forever.
type QueueManager struct {
	provider *QuestionProvider
	starter  MatchStarter
	cfg      GameConfig
	now      func() time.Time

	mu      sync.Mutex
	rnd     *rand.Rand
	buckets map[bucketKey][]*queueEntry
}

func NewQueueManager(provider *QuestionProvider, starter MatchStarter, cfg GameConfig) *QueueManager {
	return &QueueManager{
		provider: provider,
		starter:  starter,
		cfg:      cfg,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		buckets:  make(map[bucketKey][]*queueEntry),
	}
}

// Enqueue inserts a player into its preference bucket and starts (or restarts)
// the fill timer. When the bucket reaches the minimum population the oldest
// entries form a match immediately.
func (q *QueueManager) Enqueue(id, name string, prefs domain.Preferences, client ClientNotifier) (int, int, error) {
	if name == "" {
		return 0, 0, domain.ErrEmptyUsername
	}
	if !q.provider.HasCategory(prefs.Category) || !q.provider.ValidDifficulty(prefs.Difficulty) {
		return 0, 0, domain.ErrInvalidPreferences
	}
	if q.starter.HasLiveSeat(id) {
		return 0, 0, domain.ErrAlreadyInMatch
	}

	q.mu.Lock()
	q.removeLocked(id)

	key := bucketKey{prefs.Category, prefs.Difficulty}
	entry := &queueEntry{
		id:       id,
		name:     name,
		prefs:    prefs,
		joinedAt: q.now(),
		client:   client,
	}
	entry.timer = time.AfterFunc(q.cfg.FillTimeout, func() { q.fillExpired(id) })
	q.buckets[key] = append(q.buckets[key], entry)
	position := len(q.buckets[key])
	waiting := position

	seats, prefsOut, formed := q.takeForMatchLocked(key)
	q.mu.Unlock()

	if formed {
		q.starter.StartMatch(seats, 0, prefsOut)
	}
	return position, waiting, nil
}

// Dequeue removes the entry if present and cancels its fill timer. Idempotent.
func (q *QueueManager) Dequeue(id string) {
	q.mu.Lock()
	q.removeLocked(id)
	q.mu.Unlock()
}

// Size is the total waiting population across all buckets.
func (q *QueueManager) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, bucket := range q.buckets {
		total += len(bucket)
	}
	return total
}

// takeForMatchLocked removes up to MaxPlayers oldest entries in join order
// once the bucket reaches the minimum.
func (q *QueueManager) takeForMatchLocked(key bucketKey) ([]Seat, domain.Preferences, bool) {
	bucket := q.buckets[key]
	if len(bucket) < q.cfg.MinPlayers {
		return nil, domain.Preferences{}, false
	}
	take := len(bucket)
	if take > q.cfg.MaxPlayers {
		take = q.cfg.MaxPlayers
	}
	taken := bucket[:take]
	rest := append([]*queueEntry(nil), bucket[take:]...)
	if len(rest) == 0 {
		delete(q.buckets, key)
	} else {
		q.buckets[key] = rest
	}

	seats := make([]Seat, 0, take)
	for _, e := range taken {
		e.timer.Stop()
		seats = append(seats, Seat{ID: e.id, DisplayName: e.name, Client: e.client})
	}
	return seats, taken[0].prefs, true
}

// fillExpired runs when an entrant's fill timer fires. If the bucket is still
// under the minimum it drains entirely into a filler-padded match; if the
// entry already left the queue this is a no-op.
func (q *QueueManager) fillExpired(id string) {
	q.mu.Lock()
	key, _, ok := q.findLocked(id)
	if !ok {
		q.mu.Unlock()
		return
	}
	bucket := q.buckets[key]
	if len(bucket) >= q.cfg.MinPlayers {
		// Formation is eager on enqueue, so this should not happen; leave the
		// bucket to the normal path.
		q.mu.Unlock()
		return
	}

	delete(q.buckets, key)
	seats := make([]Seat, 0, len(bucket))
	for _, e := range bucket {
		e.timer.Stop()
		seats = append(seats, Seat{ID: e.id, DisplayName: e.name, Client: e.client})
	}
	prefs := bucket[0].prefs

	fillers := q.cfg.MinPlayers + q.rnd.Intn(2)
	if max := q.cfg.MaxPlayers - len(seats); fillers > max {
		fillers = max
	}
	q.mu.Unlock()

	q.starter.StartMatch(seats, fillers, prefs)
}

func (q *QueueManager) findLocked(id string) (bucketKey, int, bool) {
	for key, bucket := range q.buckets {
		for i, e := range bucket {
			if e.id == id {
				return key, i, true
			}
		}
	}
	return bucketKey{}, 0, false
}

func (q *QueueManager) removeLocked(id string) {
	key, i, ok := q.findLocked(id)
	if !ok {
		return
	}
	bucket := q.buckets[key]
	bucket[i].timer.Stop()
	bucket = append(bucket[:i], bucket[i+1:]...)
	if len(bucket) == 0 {
		delete(q.buckets, key)
	} else {
		q.buckets[key] = bucket
	}
}
