package zoningqa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/zoningqa/geocode"
)

type fakeChat struct {
	answer   string
	err      error
	calls    int
	messages []ChatMessage
	opts     CompletionOptions
}

func (c *fakeChat) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	c.calls++
	c.messages = messages
	c.opts = opts
	return c.answer, c.err
}

func (c *fakeChat) Model() string {
	return "fake-model"
}

type fakeGeocoder struct {
	attrs   geocode.Attributes
	err     error
	address string
}

func (g *fakeGeocoder) Lookup(ctx context.Context, address string) (geocode.Attributes, error) {
	g.address = address
	return g.attrs, g.err
}

type memoryCache struct {
	answers map[string]string
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	answer, ok := c.answers[key]
	return answer, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, answer string) error {
	c.answers[key] = answer
	return nil
}

type routerTestSuite struct {
	suite.Suite
	chunks   []Chunk
	indexErr error
	k        int
	chat     *fakeChat
	geocoder *fakeGeocoder
	router   Router
}

func (suite *routerTestSuite) SetupTest() {
	suite.chunks = []Chunk{
		{Text: "R6 districts are medium-density.", Source: "handbook.pdf", Page: "31", Rank: 1},
		{Text: "FAR is floor area ratio.", Source: "handbook.pdf", Page: "14", Rank: 2},
	}
	suite.indexErr = nil
	suite.k = 0
	suite.chat = &fakeChat{answer: "R6 is a medium-density residence district."}
	suite.geocoder = new(fakeGeocoder)

	suite.router = NewRouter(RouterConfig{Temperature: 0.3, MaxTokens: 256}, suite.index(), suite.chat, suite.geocoder)
}

func (suite *routerTestSuite) index() Index {
	return IndexFunc(func(ctx context.Context, query string, k int) ([]Chunk, error) {
		suite.k = k
		return suite.chunks, suite.indexErr
	})
}

func (suite *routerTestSuite) TestDocumentAnswer() {
	answer := suite.router.Answer(context.Background(), "What is an R6 district?")

	suite.Equal("R6 is a medium-density residence district.", answer)
	suite.Equal(DefaultTopK, suite.k)
	suite.Equal(CompletionOptions{Temperature: 0.3, MaxTokens: 256}, suite.chat.opts)

	if suite.Len(suite.chat.messages, 2) {
		user := suite.chat.messages[1].Content
		suite.Contains(user, "[handbook.pdf, page 31] R6 districts are medium-density.")
		suite.Less(strings.Index(user, "page 31"), strings.Index(user, "page 14"))
	}

	suite.Empty(suite.geocoder.address)
}

func (suite *routerTestSuite) TestNoChunks() {
	suite.chunks = nil

	answer := suite.router.Answer(context.Background(), "What is a zoning lot?")
	suite.Equal(NoInformationAnswer, answer)
	suite.Zero(suite.chat.calls)
}

func (suite *routerTestSuite) TestRetrievalError() {
	suite.indexErr = errors.New("index missing")

	answer := suite.router.Answer(context.Background(), "What is a zoning lot?")
	suite.Equal(UnexpectedErrorPrefix+"index missing", answer)
	suite.Zero(suite.chat.calls)
}

func (suite *routerTestSuite) TestCompletionError() {
	suite.chat.err = errors.New("rate limited")

	answer := suite.router.Answer(context.Background(), "What is a zoning lot?")
	suite.Equal(UnexpectedErrorPrefix+"rate limited", answer)
}

func (suite *routerTestSuite) TestContextTruncated() {
	suite.chunks = []Chunk{
		{Text: strings.Repeat("a", 300), Source: "handbook.pdf", Page: "1"},
		{Text: strings.Repeat("b", 300), Source: "handbook.pdf", Page: "2"},
	}

	router := NewRouter(RouterConfig{MaxContextChars: 200}, suite.index(), suite.chat, nil)
	router.Answer(context.Background(), "long")

	suite.Contains(suite.chat.messages[1].Content, TruncationMarker)
	suite.Equal(DefaultMaxTokens, suite.chat.opts.MaxTokens)
}

func (suite *routerTestSuite) TestAddressAnswer() {
	suite.geocoder.attrs = geocode.Attributes{
		"zoningDistrict":     "C5-5",
		"commercial_overlay": "C1-4",
		"boro":               "Manhattan",
	}

	answer := suite.router.Answer(context.Background(), "Address: 120 Broadway ")

	suite.Equal("120 Broadway", suite.geocoder.address)
	suite.Equal(ZoningAnswer("C5-5", "C1-4", "Manhattan"), answer)
	suite.Zero(suite.chat.calls)
	suite.Zero(suite.k)
}

func (suite *routerTestSuite) TestAddressNoFields() {
	suite.geocoder.attrs = geocode.Attributes{"bbl": "1000477501"}

	answer := suite.router.Answer(context.Background(), "address: 1 Centre St")
	suite.Equal(NoZoningFieldsAnswer, answer)
}

func (suite *routerTestSuite) TestAddressUnavailable() {
	suite.geocoder.err = geocode.ErrUnavailable

	answer := suite.router.Answer(context.Background(), "address:")
	suite.Equal(ZoningUnavailableAnswer, answer)
	suite.Empty(suite.geocoder.address)

	router := NewRouter(RouterConfig{}, suite.index(), suite.chat, nil)
	suite.Equal(ZoningUnavailableAnswer, router.Answer(context.Background(), "address: 1 Centre St"))
}

func (suite *routerTestSuite) TestMissingCollaborators() {
	router := NewRouter(RouterConfig{}, nil, suite.chat, nil)
	answer := router.Answer(context.Background(), "What is FAR?")
	suite.Equal(UnexpectedErrorAnswer(ErrIndexNotSet), answer)

	router = NewRouter(RouterConfig{}, suite.index(), nil, nil)
	answer = router.Answer(context.Background(), "What is FAR?")
	suite.Equal(UnexpectedErrorAnswer(ErrChatModelNotSet), answer)
}

func (suite *routerTestSuite) TestAnswerCache() {
	cache := &memoryCache{answers: make(map[string]string)}
	router := NewRouter(RouterConfig{}, suite.index(), suite.chat, nil, WithAnswerCache(cache))

	first := router.Answer(context.Background(), "What is FAR?")
	second := router.Answer(context.Background(), "  what is   FAR? ")

	suite.Equal(first, second)
	suite.Equal(1, suite.chat.calls)
	suite.Len(cache.answers, 1)

	// failures are not cached
	suite.chat.err = errors.New("boom")
	router.Answer(context.Background(), "What is a zoning lot?")
	suite.Len(cache.answers, 1)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(routerTestSuite))
}
