package zoningqa

import (
	"context"
	"errors"
)

var ErrInvalidResponse = errors.New("invalid response type")

// ProxyMiddleware serves the Service interface from remote endpoints.
// The wrapped service is ignored.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) OpenSession(ctx context.Context) (string, error) {
	resp, err := mw.endpoints.OpenSession(ctx, nil)
	if err != nil {
		return "", err
	}

	result, ok := resp.(OpenSessionResponse)
	if !ok {
		return "", ErrInvalidResponse
	}

	return result.SessionID, nil
}

func (mw *proxyMiddleware) CloseSession(ctx context.Context, sessionID string) error {
	_, err := mw.endpoints.CloseSession(ctx, sessionID)
	return err
}

func (mw *proxyMiddleware) CreateThread(ctx context.Context) (ThreadID, error) {
	resp, err := mw.endpoints.CreateThread(ctx, nil)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(CreateThreadResponse)
	if !ok {
		return 0, ErrInvalidResponse
	}

	return result.ThreadID, nil
}

func (mw *proxyMiddleware) ListThreads(ctx context.Context) ([]ThreadSummary, error) {
	resp, err := mw.endpoints.ListThreads(ctx, nil)
	if err != nil {
		return nil, err
	}

	threads, ok := resp.([]ThreadSummary)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return threads, nil
}

func (mw *proxyMiddleware) SelectThread(ctx context.Context, id ThreadID) error {
	_, err := mw.endpoints.SelectThread(ctx, id)
	return err
}

func (mw *proxyMiddleware) Thread(ctx context.Context, id ThreadID) (*Thread, error) {
	resp, err := mw.endpoints.GetThread(ctx, id)
	if err != nil {
		return nil, err
	}

	thread, ok := resp.(*Thread)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return thread, nil
}

func (mw *proxyMiddleware) Ask(ctx context.Context, question string) (*Exchange, error) {
	resp, err := mw.endpoints.Ask(ctx, QuestionRequest{question})
	if err != nil {
		return nil, err
	}

	exchange, ok := resp.(*Exchange)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return exchange, nil
}

func (mw *proxyMiddleware) Answer(ctx context.Context, question string) (string, error) {
	resp, err := mw.endpoints.Answer(ctx, QuestionRequest{question})
	if err != nil {
		return "", err
	}

	result, ok := resp.(AnswerResponse)
	if !ok {
		return "", ErrInvalidResponse
	}

	return result.Answer, nil
}
