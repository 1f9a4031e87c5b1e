package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/zoningqa"
)

func errorMsg(code, description string) *nats.Msg {
	msg := nats.NewMsg("zoningqa.ask")
	msg.Header.Set(micro.ErrorCodeHeader, code)
	msg.Header.Set(micro.ErrorHeader, description)
	return msg
}

func TestError(t *testing.T) {
	assert := assert.New(t)

	msg := nats.NewMsg("zoningqa.ask")
	msg.Data = []byte(`{"answer":"ok"}`)
	assert.NoError(Error(msg))

	assert.Error(Error(nil))

	err := Error(errorMsg("404", zoningqa.ErrSessionNotFound.Error()))
	assert.True(errors.Is(err, zoningqa.ErrSessionNotFound))

	err = Error(errorMsg("400", zoningqa.ErrEmptyQuestion.Error()))
	assert.True(errors.Is(err, zoningqa.ErrEmptyQuestion))

	err = Error(errorMsg("400", zoningqa.ErrInvalidThreadID.Error()))
	assert.True(errors.Is(err, zoningqa.ErrInvalidThreadID))

	err = Error(errorMsg("417", "redis: connection refused"))
	assert.EqualError(err, "417:redis: connection refused")

	err = Error(errorMsg("500", ""))
	assert.EqualError(err, "500:unknown error")
}

func TestErrorCode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("404", errorCode(zoningqa.ErrThreadNotFound))
	assert.Equal("404", errorCode(zoningqa.ErrSessionNotFound))
	assert.Equal("400", errorCode(zoningqa.ErrInvalidSession))
	assert.Equal("400", errorCode(zoningqa.ErrInvalidThreadID))
	assert.Equal("417", errorCode(errors.New("boom")))
}

type recordedRequest struct {
	data    []byte
	headers micro.Headers

	code        string
	description string
	response    []byte
}

func (r *recordedRequest) Respond(data []byte, opts ...micro.RespondOpt) error {
	r.response = data
	return nil
}

func (r *recordedRequest) RespondJSON(v any, opts ...micro.RespondOpt) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.response = bs
	return nil
}

func (r *recordedRequest) Error(code, description string, data []byte, opts ...micro.RespondOpt) error {
	r.code = code
	r.description = description
	return nil
}

func (r *recordedRequest) Data() []byte           { return r.data }
func (r *recordedRequest) Headers() micro.Headers { return r.headers }
func (r *recordedRequest) Subject() string        { return "zoningqa.threads.get" }
func (r *recordedRequest) Reply() string          { return "" }

func TestGetThreadHandlerInvalidID(t *testing.T) {
	assert := assert.New(t)

	called := false
	endpoint := func(ctx context.Context, request any) (any, error) {
		called = true
		return nil, nil
	}

	headers := micro.Headers{SessionHeader: []string{"session"}}

	r := &recordedRequest{data: []byte("abc"), headers: headers}
	GetThreadHandler(endpoint)(r)

	assert.False(called)
	assert.Equal("400", r.code)
	assert.Equal(zoningqa.ErrInvalidThreadID.Error(), r.description)

	r = &recordedRequest{data: []byte("abc"), headers: headers}
	SelectThreadHandler(endpoint)(r)

	assert.False(called)
	assert.Equal("400", r.code)
}
