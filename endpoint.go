package zoningqa

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	OpenSession  endpoint.Endpoint
	CloseSession endpoint.Endpoint
	CreateThread endpoint.Endpoint
	ListThreads  endpoint.Endpoint
	SelectThread endpoint.Endpoint
	GetThread    endpoint.Endpoint
	Ask          endpoint.Endpoint
	Answer       endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		OpenSession:  OpenSessionEndpoint(svc),
		CloseSession: CloseSessionEndpoint(svc),
		CreateThread: CreateThreadEndpoint(svc),
		ListThreads:  ListThreadsEndpoint(svc),
		SelectThread: SelectThreadEndpoint(svc),
		GetThread:    GetThreadEndpoint(svc),
		Ask:          AskEndpoint(svc),
		Answer:       AnswerEndpoint(svc),
	}
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
}

func OpenSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, err := svc.OpenSession(ctx)
		if err != nil {
			return nil, err
		}

		return OpenSessionResponse{sessionID}, nil
	}
}

func CloseSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.CloseSession(ctx, sessionID)
		return nil, err
	}
}

type CreateThreadResponse struct {
	ThreadID ThreadID `json:"thread_id"`
}

func CreateThreadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		id, err := svc.CreateThread(ctx)
		if err != nil {
			return nil, err
		}

		return CreateThreadResponse{id}, nil
	}
}

func ListThreadsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListThreads(ctx)
	}
}

func SelectThreadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		id, ok := request.(ThreadID)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.SelectThread(ctx, id)
		return nil, err
	}
}

func GetThreadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		id, ok := request.(ThreadID)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Thread(ctx, id)
	}
}

type QuestionRequest struct {
	Question string `json:"question" form:"question" binding:"required"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QuestionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Ask(ctx, req.Question)
	}
}

type AnswerResponse struct {
	Answer string `json:"answer"`
}

func AnswerEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QuestionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		answer, err := svc.Answer(ctx, req.Question)
		if err != nil {
			return nil, err
		}

		return AnswerResponse{answer}, nil
	}
}
