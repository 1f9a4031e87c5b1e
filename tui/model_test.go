package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/zoningqa"
)

type echoRouter struct{}

func (echoRouter) Answer(ctx context.Context, question string) string {
	return "answer: " + question
}

type modelTestSuite struct {
	suite.Suite
	svc   zoningqa.Service
	model Model
}

func (suite *modelTestSuite) SetupTest() {
	ctx := context.Background()

	svc, err := zoningqa.NewService(ctx, zoningqa.Config{}, echoRouter{})
	suite.Require().NoError(err)

	sessionID, err := svc.OpenSession(ctx)
	suite.Require().NoError(err)

	suite.svc = svc
	suite.model = New(context.WithValue(ctx, zoningqa.SessionID, sessionID), svc)

	suite.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	suite.update(suite.model.refresh()())
}

func (suite *modelTestSuite) TearDownTest() {
	suite.svc.Close()
}

func (suite *modelTestSuite) update(msg tea.Msg) tea.Cmd {
	next, cmd := suite.model.Update(msg)
	suite.model = next.(Model)
	return cmd
}

func (suite *modelTestSuite) submit(question string) {
	suite.model.input.SetValue(question)
	suite.update(tea.KeyMsg{Type: tea.KeyEnter})
	suite.True(suite.model.pending)

	suite.update(suite.model.ask(question)())
	suite.False(suite.model.pending)

	suite.update(suite.model.refresh()())
}

func (suite *modelTestSuite) TestSubmit() {
	suite.submit("What is R6?")

	suite.Equal("", suite.model.input.Value())
	if suite.NotNil(suite.model.thread) && suite.Len(suite.model.thread.Turns, 2) {
		suite.Equal("What is R6?", suite.model.thread.Turns[0].Content)
		suite.Equal("answer: What is R6?", suite.model.thread.Turns[1].Content)
	}

	view := suite.model.View()
	suite.Contains(view, "What is R6?")
	suite.Contains(view, "answer: What is R6?")
}

func (suite *modelTestSuite) TestBlankSubmitIgnored() {
	suite.model.input.SetValue("   ")

	cmd := suite.update(tea.KeyMsg{Type: tea.KeyEnter})
	suite.Nil(cmd)
	suite.False(suite.model.pending)
}

func (suite *modelTestSuite) TestSubmitWhilePending() {
	suite.model.input.SetValue("first")
	suite.update(tea.KeyMsg{Type: tea.KeyEnter})
	suite.True(suite.model.pending)

	suite.model.input.SetValue("second")
	cmd := suite.update(tea.KeyMsg{Type: tea.KeyEnter})
	suite.Nil(cmd)
	suite.Equal("second", suite.model.input.Value())
}

func (suite *modelTestSuite) TestNewThreadAndSwitch() {
	suite.submit("first question")

	suite.update(suite.model.createThread()())
	suite.Len(suite.model.threads, 2)
	suite.Equal(zoningqa.ThreadID(2), suite.model.thread.ID)
	suite.Empty(suite.model.thread.Turns)

	suite.submit("second question")

	// list is newest first; moving down reaches the older thread
	suite.update(tea.KeyMsg{Type: tea.KeyCtrlDown})
	id, ok := suite.model.neighbour(1)
	suite.True(ok)
	suite.Equal(zoningqa.ThreadID(1), id)

	suite.update(suite.model.selectThread(id)())
	suite.Equal(zoningqa.ThreadID(1), suite.model.thread.ID)
	suite.Equal("first question", suite.model.thread.Turns[0].Content)
}

func (suite *modelTestSuite) TestPlaceholderRotates() {
	first := suite.model.input.Placeholder

	cmd := suite.update(placeholderMsg{})
	suite.NotNil(cmd)
	suite.NotEqual(first, suite.model.input.Placeholder)

	for range Placeholders[1:] {
		suite.update(placeholderMsg{})
	}

	suite.Equal(first, suite.model.input.Placeholder)
}

func (suite *modelTestSuite) TestServiceError() {
	suite.update(answerMsg{err: zoningqa.ErrSessionNotFound})
	suite.True(strings.HasPrefix(suite.model.status, "Error: "))
}

func (suite *modelTestSuite) TestQuit() {
	cmd := suite.update(tea.KeyMsg{Type: tea.KeyCtrlC})
	suite.NotNil(cmd)
	suite.IsType(tea.QuitMsg{}, cmd())
}

func TestModelTestSuite(t *testing.T) {
	suite.Run(t, new(modelTestSuite))
}
