package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/zoningqa"
)

const (
	TopicOpenSession  = "open_session"
	TopicCloseSession = "close_session"
	TopicCreateThread = "create_thread"
	TopicListThreads  = "list_threads"
	TopicSelectThread = "select_thread"
	TopicGetThread    = "get_thread"
	TopicAsk          = "ask"
	TopicAnswer       = "answer"
)

func AddEndpoints(group micro.Group, endpoints zoningqa.EndpointSet) error {
	handlers := []struct {
		name    string
		handler micro.HandlerFunc
	}{
		{TopicOpenSession, OpenSessionHandler(endpoints.OpenSession)},
		{TopicCloseSession, CloseSessionHandler(endpoints.CloseSession)},
		{TopicCreateThread, CreateThreadHandler(endpoints.CreateThread)},
		{TopicListThreads, ListThreadsHandler(endpoints.ListThreads)},
		{TopicSelectThread, SelectThreadHandler(endpoints.SelectThread)},
		{TopicGetThread, GetThreadHandler(endpoints.GetThread)},
		{TopicAsk, AskHandler(endpoints.Ask)},
		{TopicAnswer, AnswerHandler(endpoints.Answer)},
	}

	for _, h := range handlers {
		if err := group.AddEndpoint(h.name, h.handler); err != nil {
			return err
		}
	}

	return nil
}
