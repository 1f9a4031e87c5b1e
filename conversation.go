package zoningqa

import (
	"sort"
	"sync"
	"time"
)

// Conversation holds the threads of one user session. It always has an
// active thread; the first one is created on construction.
type Conversation struct {
	threads map[ThreadID]*Thread
	active  ThreadID
	counter ThreadID

	now func() time.Time
	mu  sync.Mutex
}

type ConversationOption func(*Conversation)

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) {
		c.now = now
	}
}

func NewConversation(opts ...ConversationOption) *Conversation {
	c := &Conversation{
		threads: make(map[ThreadID]*Thread),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.createThread()
	return c
}

// CreateThread registers an empty thread and makes it active.
// IDs come from a counter and are never reused.
func (c *Conversation) CreateThread() ThreadID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.createThread()
}

func (c *Conversation) createThread() ThreadID {
	c.counter++

	id := c.counter
	c.threads[id] = &Thread{
		ID:    id,
		Turns: make([]Turn, 0),
	}

	c.active = id
	return id
}

// ListThreads orders threads by the time of their last turn, newest first.
// Threads without turns sort last and are left out unless active. Ties go
// to the most recently created thread.
func (c *Conversation) ListThreads() []ThreadSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := make([]ThreadSummary, 0, len(c.threads))
	for id, thread := range c.threads {
		if len(thread.Turns) == 0 && id != c.active {
			continue
		}

		summaries = append(summaries, ThreadSummary{
			ID:        id,
			Title:     thread.Title(),
			Active:    id == c.active,
			Turns:     len(thread.Turns),
			UpdatedAt: thread.UpdatedAt(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}

		return a.ID > b.ID
	})

	return summaries
}

func (c *Conversation) SelectThread(id ThreadID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.threads[id]; !ok {
		return ErrThreadNotFound
	}

	c.active = id
	return nil
}

func (c *Conversation) ActiveThread() ThreadID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active
}

// AppendTurn stamps and appends a turn. Timestamps never go backwards
// within a thread.
func (c *Conversation) AppendTurn(id ThreadID, role Role, content string) (Turn, error) {
	if !role.Valid() {
		return Turn{}, ErrInvalidRole
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	thread, ok := c.threads[id]
	if !ok {
		return Turn{}, ErrThreadNotFound
	}

	now := c.now()
	if last := thread.UpdatedAt(); now.Before(last) {
		now = last
	}

	turn := Turn{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}

	thread.Turns = append(thread.Turns, turn)
	return turn, nil
}

// Thread returns a copy of the thread.
func (c *Conversation) Thread(id ThreadID) (Thread, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	thread, ok := c.threads[id]
	if !ok {
		return Thread{}, ErrThreadNotFound
	}

	turns := make([]Turn, len(thread.Turns))
	copy(turns, thread.Turns)

	return Thread{
		ID:    thread.ID,
		Turns: turns,
	}, nil
}
