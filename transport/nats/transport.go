package nats

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/zoningqa"
)

const SessionHeader = "session_id"

func errorCode(err error) string {
	switch {
	case errors.Is(err, zoningqa.ErrSessionNotFound),
		errors.Is(err, zoningqa.ErrThreadNotFound):
		return "404"

	case errors.Is(err, zoningqa.ErrInvalidSession),
		errors.Is(err, zoningqa.ErrInvalidThreadID),
		errors.Is(err, zoningqa.ErrEmptyQuestion):
		return "400"

	default:
		return "417"
	}
}

func sessionContext(r micro.Request) (context.Context, error) {
	sessionID := r.Headers().Get(SessionHeader)
	if sessionID == "" {
		return nil, zoningqa.ErrInvalidSession
	}

	return context.WithValue(context.Background(), zoningqa.SessionID, sessionID), nil
}

func threadID(r micro.Request) (zoningqa.ThreadID, error) {
	id, err := strconv.Atoi(string(r.Data()))
	if err != nil {
		return 0, zoningqa.ErrInvalidThreadID
	}

	return zoningqa.ThreadID(id), nil
}

func OpenSessionHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func CloseSessionHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		sessionID := string(r.Data())
		if sessionID == "" {
			r.Error("400", zoningqa.ErrInvalidSession.Error(), nil)
			return
		}

		ctx := context.Background()
		_, err := endpoint(ctx, sessionID)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func CreateThreadHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, err := sessionContext(r)
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ListThreadsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, err := sessionContext(r)
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		threads, ok := resp.([]zoningqa.ThreadSummary)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&threads)
	}
}

func SelectThreadHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, err := sessionContext(r)
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		id, err := threadID(r)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		_, err = endpoint(ctx, id)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func GetThreadHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, err := sessionContext(r)
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		id, err := threadID(r)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		resp, err := endpoint(ctx, id)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func AskHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx, err := sessionContext(r)
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		var req zoningqa.QuestionRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func AnswerHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req zoningqa.QuestionRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}
