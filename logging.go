package zoningqa

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "zoningqa"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) withSession(ctx context.Context, log *zap.Logger) *zap.Logger {
	sessionID, ok := ctx.Value(SessionID).(string)
	if ok {
		log = log.With(
			zap.String("session_id", sessionID),
		)
	}

	return log
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) OpenSession(ctx context.Context) (string, error) {
	log := mw.log.With(
		zap.String("action", "open_session"),
	)

	sessionID, err := mw.next.OpenSession(ctx)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("session opened", zap.String("session_id", sessionID))
	return sessionID, nil
}

func (mw *loggingMiddleware) CloseSession(ctx context.Context, sessionID string) error {
	log := mw.log.With(
		zap.String("action", "close_session"),
		zap.String("session_id", sessionID),
	)

	err := mw.next.CloseSession(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session closed")
	return nil
}

func (mw *loggingMiddleware) CreateThread(ctx context.Context) (ThreadID, error) {
	log := mw.withSession(ctx, mw.log.With(
		zap.String("action", "create_thread"),
	))

	id, err := mw.next.CreateThread(ctx)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Info("thread created", zap.Int("thread_id", int(id)))
	return id, nil
}

func (mw *loggingMiddleware) ListThreads(ctx context.Context) ([]ThreadSummary, error) {
	log := mw.withSession(ctx, mw.log.With(
		zap.String("action", "list_threads"),
	))

	threads, err := mw.next.ListThreads(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("threads listed", zap.Int("count", len(threads)))
	return threads, nil
}

func (mw *loggingMiddleware) SelectThread(ctx context.Context, id ThreadID) error {
	log := mw.withSession(ctx, mw.log.With(
		zap.String("action", "select_thread"),
		zap.Int("thread_id", int(id)),
	))

	err := mw.next.SelectThread(ctx, id)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("thread selected")
	return nil
}

func (mw *loggingMiddleware) Thread(ctx context.Context, id ThreadID) (*Thread, error) {
	log := mw.withSession(ctx, mw.log.With(
		zap.String("action", "get_thread"),
		zap.Int("thread_id", int(id)),
	))

	thread, err := mw.next.Thread(ctx, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("thread fetched", zap.Int("turns", len(thread.Turns)))
	return thread, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, question string) (*Exchange, error) {
	log := mw.withSession(ctx, mw.log.With(
		zap.String("action", "ask"),
		zap.String("question", question),
	))

	exchange, err := mw.next.Ask(ctx, question)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("question answered",
		zap.Int("thread_id", int(exchange.ThreadID)),
		zap.Int("answer_len", len(exchange.Answer.Content)),
	)

	return exchange, nil
}

func (mw *loggingMiddleware) Answer(ctx context.Context, question string) (string, error) {
	log := mw.log.With(
		zap.String("action", "answer"),
		zap.String("question", question),
	)

	answer, err := mw.next.Answer(ctx, question)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered", zap.Int("answer_len", len(answer)))
	return answer, nil
}
