package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/zoningqa"

	mcpE "github.com/flarexio/zoningqa/mcp"
)

type echoRouter struct{}

func (echoRouter) Answer(ctx context.Context, question string) string {
	return "answer: " + question
}

type transportTestSuite struct {
	suite.Suite
	svc    zoningqa.Service
	engine *gin.Engine
}

func (suite *transportTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	svc, err := zoningqa.NewService(context.Background(), zoningqa.Config{}, echoRouter{})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.svc = svc
	suite.engine = gin.New()

	AddRouters(suite.engine, zoningqa.MakeEndpoints(svc))
	AddStreamableRouters(suite.engine, mcpE.Endpoints(svc))
}

func (suite *transportTestSuite) TearDownTest() {
	suite.svc.Close()
}

func (suite *transportTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)
	return w
}

func (suite *transportTestSuite) openSession() string {
	w := suite.do(http.MethodPost, "/api/sessions", "")
	suite.Equal(http.StatusCreated, w.Code)

	var resp zoningqa.OpenSessionResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.NotEmpty(resp.SessionID)
	return resp.SessionID
}

func (suite *transportTestSuite) TestAskFlow() {
	sessionID := suite.openSession()
	base := "/api/sessions/" + sessionID

	w := suite.do(http.MethodPost, base+"/ask", `{"question":"What is R6?"}`)
	suite.Equal(http.StatusOK, w.Code)

	var exchange zoningqa.Exchange
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &exchange))
	suite.Equal(zoningqa.ThreadID(1), exchange.ThreadID)
	suite.Equal("What is R6?", exchange.Question.Content)
	suite.Equal("answer: What is R6?", exchange.Answer.Content)

	w = suite.do(http.MethodGet, base+"/threads/1", "")
	suite.Equal(http.StatusOK, w.Code)

	var thread zoningqa.Thread
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &thread))
	if suite.Len(thread.Turns, 2) {
		suite.Equal(zoningqa.RoleUser, thread.Turns[0].Role)
		suite.Equal(zoningqa.RoleAssistant, thread.Turns[1].Role)
	}
}

func (suite *transportTestSuite) TestThreads() {
	sessionID := suite.openSession()
	base := "/api/sessions/" + sessionID

	suite.do(http.MethodPost, base+"/ask", `{"question":"first"}`)

	w := suite.do(http.MethodPost, base+"/threads", "")
	suite.Equal(http.StatusCreated, w.Code)

	var created zoningqa.CreateThreadResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &created))
	suite.Equal(zoningqa.ThreadID(2), created.ThreadID)

	w = suite.do(http.MethodGet, base+"/threads", "")
	suite.Equal(http.StatusOK, w.Code)

	var threads []zoningqa.ThreadSummary
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &threads))
	suite.Len(threads, 2)

	w = suite.do(http.MethodPut, base+"/threads/1", "")
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPut, base+"/threads/42", "")
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodGet, base+"/threads/abc", "")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(zoningqa.ErrInvalidThreadID.Error(), w.Body.String())

	w = suite.do(http.MethodPut, base+"/threads/abc", "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *transportTestSuite) TestUnknownSession() {
	w := suite.do(http.MethodPost, "/api/sessions/unknown/ask", `{"question":"What is R6?"}`)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodDelete, "/api/sessions/unknown", "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *transportTestSuite) TestCloseSession() {
	sessionID := suite.openSession()

	w := suite.do(http.MethodDelete, "/api/sessions/"+sessionID, "")
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/sessions/"+sessionID+"/threads", "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *transportTestSuite) TestBlankQuestion() {
	sessionID := suite.openSession()

	w := suite.do(http.MethodPost, "/api/sessions/"+sessionID+"/ask", `{"question":"   "}`)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/answer", `{}`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *transportTestSuite) TestAnswer() {
	w := suite.do(http.MethodPost, "/api/answer", `{"question":"What is C1-2?"}`)
	suite.Equal(http.StatusOK, w.Code)

	var resp zoningqa.AnswerResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("answer: What is C1-2?", resp.Answer)
}

func (suite *transportTestSuite) TestMCPStreamable() {
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ask_zoning","arguments":{"question":"What is R6?"}}}`

	w := suite.do(http.MethodPost, "/mcp/", body)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "answer: What is R6?")

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc":"2.0","id":2,"method":"prompts/list"}`)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	suite.Equal(http.StatusAccepted, w.Code)
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(transportTestSuite))
}
