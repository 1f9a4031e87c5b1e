package nats

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/zoningqa"
)

// DefaultTimeout leaves room for a retrieval plus a completion.
const DefaultTimeout = 90 * time.Second

func MakeEndpoints(nc *nats.Conn, prefix string, timeout time.Duration) *zoningqa.EndpointSet {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &client{nc, timeout}

	return &zoningqa.EndpointSet{
		OpenSession:  c.OpenSessionEndpoint(prefix + "." + TopicOpenSession),
		CloseSession: c.CloseSessionEndpoint(prefix + "." + TopicCloseSession),
		CreateThread: c.CreateThreadEndpoint(prefix + "." + TopicCreateThread),
		ListThreads:  c.ListThreadsEndpoint(prefix + "." + TopicListThreads),
		SelectThread: c.SelectThreadEndpoint(prefix + "." + TopicSelectThread),
		GetThread:    c.GetThreadEndpoint(prefix + "." + TopicGetThread),
		Ask:          c.AskEndpoint(prefix + "." + TopicAsk),
		Answer:       c.AnswerEndpoint(prefix + "." + TopicAnswer),
	}
}

type client struct {
	nc      *nats.Conn
	timeout time.Duration
}

func (c *client) request(ctx context.Context, topic string, data []byte) ([]byte, error) {
	header := make(nats.Header)

	sessionID, ok := ctx.Value(zoningqa.SessionID).(string)
	if ok {
		header.Set(SessionHeader, sessionID)
	}

	msg := nats.NewMsg(topic)
	msg.Header = header
	msg.Data = data

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}

func (c *client) OpenSessionEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		data, err := c.request(ctx, topic, nil)
		if err != nil {
			return nil, err
		}

		var resp zoningqa.OpenSessionResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func (c *client) CloseSessionEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		_, err := c.request(ctx, topic, []byte(sessionID))
		return nil, err
	}
}

func (c *client) CreateThreadEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		data, err := c.request(ctx, topic, nil)
		if err != nil {
			return nil, err
		}

		var resp zoningqa.CreateThreadResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func (c *client) ListThreadsEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		data, err := c.request(ctx, topic, nil)
		if err != nil {
			return nil, err
		}

		var threads []zoningqa.ThreadSummary
		if err := json.Unmarshal(data, &threads); err != nil {
			return nil, err
		}

		return threads, nil
	}
}

func (c *client) SelectThreadEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		id, ok := request.(zoningqa.ThreadID)
		if !ok {
			return nil, errors.New("invalid request")
		}

		_, err := c.request(ctx, topic, []byte(strconv.Itoa(int(id))))
		return nil, err
	}
}

func (c *client) GetThreadEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		id, ok := request.(zoningqa.ThreadID)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := c.request(ctx, topic, []byte(strconv.Itoa(int(id))))
		if err != nil {
			return nil, err
		}

		var thread zoningqa.Thread
		if err := json.Unmarshal(data, &thread); err != nil {
			return nil, err
		}

		return &thread, nil
	}
}

func (c *client) AskEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(zoningqa.QuestionRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		bs, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		data, err := c.request(ctx, topic, bs)
		if err != nil {
			return nil, err
		}

		var exchange zoningqa.Exchange
		if err := json.Unmarshal(data, &exchange); err != nil {
			return nil, err
		}

		return &exchange, nil
	}
}

func (c *client) AnswerEndpoint(topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(zoningqa.QuestionRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		bs, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		data, err := c.request(ctx, topic, bs)
		if err != nil {
			return nil, err
		}

		var resp zoningqa.AnswerResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

var knownErrors = []error{
	zoningqa.ErrSessionNotFound,
	zoningqa.ErrInvalidSession,
	zoningqa.ErrThreadNotFound,
	zoningqa.ErrInvalidThreadID,
	zoningqa.ErrEmptyQuestion,
}

// Error turns a micro error reply back into an error. Service errors
// that cross the wire keep their identity.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	for _, known := range knownErrors {
		if description == known.Error() {
			return known
		}
	}

	return errors.New(code + ":" + description)
}
