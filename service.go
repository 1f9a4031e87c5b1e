package zoningqa

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the core logic of the zoning assistant.
type Service interface {

	// Close stops background work and drops every session.
	Close() error

	// OpenSession creates an isolated conversation and returns its ID.
	OpenSession(ctx context.Context) (string, error)

	// CloseSession discards a session and all of its threads.
	CloseSession(ctx context.Context, sessionID string) error

	// CreateThread starts a new thread in the session and makes it active.
	CreateThread(ctx context.Context) (ThreadID, error)

	// ListThreads returns the session's threads, most recent activity first.
	ListThreads(ctx context.Context) ([]ThreadSummary, error)

	// SelectThread makes an existing thread active.
	SelectThread(ctx context.Context, id ThreadID) error

	// Thread returns one thread with its turns.
	Thread(ctx context.Context, id ThreadID) (*Thread, error)

	// Ask records the question on the active thread, answers it and
	// records the answer on the same thread.
	Ask(ctx context.Context, question string) (*Exchange, error)

	// Answer answers a question without touching any session.
	Answer(ctx context.Context, question string) (string, error)
}

type ServiceMiddleware func(Service) Service

func NewService(ctx context.Context, cfg Config, router Router) (Service, error) {
	log := zap.L().With(
		zap.String("service", "zoningqa"),
	)

	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		sessions: make(map[string]*session),
		router:   router,
		idleTTL:  cfg.Session.IdleTTL.Duration(),

		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if interval := cfg.Session.SweepInterval.Duration(); interval > 0 && svc.idleTTL > 0 {
		go svc.sessionJanitor(ctx, interval)
	}

	return svc, nil
}

type session struct {
	ID           string
	Conversation *Conversation

	heartbeat atomic.Int64

	// serialises submissions within the session
	askMutex sync.Mutex
}

func (s *session) Beat() {
	s.heartbeat.Store(time.Now().UnixNano())
}

func (s *session) IsAlive(ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}

	lastBeat := time.Unix(0, s.heartbeat.Load())
	return time.Since(lastBeat) < ttl
}

type service struct {
	sessions      map[string]*session
	sessionsMutex sync.RWMutex

	router  Router
	idleTTL time.Duration

	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (svc *service) Close() error {
	svc.closeOnce.Do(svc.cancel)

	svc.sessionsMutex.Lock()
	count := len(svc.sessions)
	svc.sessions = make(map[string]*session)
	svc.sessionsMutex.Unlock()

	svc.log.Info("sessions dropped",
		zap.String("action", "close"),
		zap.Int("count", count),
	)

	return nil
}

func (svc *service) OpenSession(ctx context.Context) (string, error) {
	s := &session{
		ID:           uuid.NewString(),
		Conversation: NewConversation(),
	}

	s.Beat()

	svc.sessionsMutex.Lock()
	svc.sessions[s.ID] = s
	svc.sessionsMutex.Unlock()

	return s.ID, nil
}

func (svc *service) CloseSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}

	svc.sessionsMutex.Lock()
	defer svc.sessionsMutex.Unlock()

	if _, ok := svc.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	delete(svc.sessions, sessionID)
	return nil
}

func (svc *service) session(ctx context.Context) (*session, error) {
	sessionID, ok := ctx.Value(SessionID).(string)
	if !ok || sessionID == "" {
		return nil, ErrInvalidSession
	}

	svc.sessionsMutex.RLock()
	s, ok := svc.sessions[sessionID]
	svc.sessionsMutex.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	s.Beat()
	return s, nil
}

func (svc *service) CreateThread(ctx context.Context) (ThreadID, error) {
	s, err := svc.session(ctx)
	if err != nil {
		return 0, err
	}

	return s.Conversation.CreateThread(), nil
}

func (svc *service) ListThreads(ctx context.Context) ([]ThreadSummary, error) {
	s, err := svc.session(ctx)
	if err != nil {
		return nil, err
	}

	return s.Conversation.ListThreads(), nil
}

func (svc *service) SelectThread(ctx context.Context, id ThreadID) error {
	s, err := svc.session(ctx)
	if err != nil {
		return err
	}

	return s.Conversation.SelectThread(id)
}

func (svc *service) Thread(ctx context.Context, id ThreadID) (*Thread, error) {
	s, err := svc.session(ctx)
	if err != nil {
		return nil, err
	}

	thread, err := s.Conversation.Thread(id)
	if err != nil {
		return nil, err
	}

	return &thread, nil
}

func (svc *service) Ask(ctx context.Context, question string) (*Exchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s, err := svc.session(ctx)
	if err != nil {
		return nil, err
	}

	s.askMutex.Lock()
	defer s.askMutex.Unlock()

	conversation := s.Conversation
	threadID := conversation.ActiveThread()

	q, err := conversation.AppendTurn(threadID, RoleUser, question)
	if err != nil {
		return nil, err
	}

	answer := svc.router.Answer(ctx, question)

	a, err := conversation.AppendTurn(threadID, RoleAssistant, answer)
	if err != nil {
		return nil, err
	}

	s.Beat()

	return &Exchange{
		ThreadID: threadID,
		Question: q,
		Answer:   a,
	}, nil
}

func (svc *service) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	return svc.router.Answer(ctx, question), nil
}

func (svc *service) sessionJanitor(ctx context.Context, interval time.Duration) {
	log := svc.log.With(
		zap.String("action", "session_janitor"),
		zap.Duration("interval", interval),
		zap.Duration("idle_ttl", svc.idleTTL),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("done")
			return

		case <-ticker.C:
			if n := svc.evictIdleSessions(); n > 0 {
				log.Info("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func (svc *service) evictIdleSessions() int {
	svc.sessionsMutex.Lock()
	defer svc.sessionsMutex.Unlock()

	evicted := 0
	for id, s := range svc.sessions {
		if s.IsAlive(svc.idleTTL) {
			continue
		}

		delete(svc.sessions, id)
		evicted++
	}

	return evicted
}
