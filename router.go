package zoningqa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/zoningqa/geocode"
)

type ChatRole string

const (
	ChatRoleSystem ChatRole = "system"
	ChatRoleUser   ChatRole = "user"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// ChatModel is a hosted chat-completion endpoint.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)
	Model() string
}

// Geocoder resolves a free-text address to a parcel record.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (geocode.Attributes, error)
}

// AnswerCache stores generated document answers. A miss is ("", false, nil).
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, answer string) error
}

// Router turns one question into one answer string. It never fails;
// every error is rendered as a sentence for the user.
type Router interface {
	Answer(ctx context.Context, question string) string
}

type RouterConfig struct {
	TopK             int
	MaxContextChars  int
	Temperature      float64
	MaxTokens        int
	RetrievalTimeout time.Duration
	ChatTimeout      time.Duration
	GeocodeTimeout   time.Duration
}

func (cfg Config) RouterConfig() RouterConfig {
	temperature := DefaultTemperature
	if cfg.LLM.Temperature != nil {
		temperature = *cfg.LLM.Temperature
	}

	return RouterConfig{
		TopK:             cfg.Retrieval.K,
		MaxContextChars:  cfg.Retrieval.MaxContextChars,
		Temperature:      temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		RetrievalTimeout: cfg.Retrieval.Timeout.Duration(),
		ChatTimeout:      cfg.LLM.Timeout.Duration(),
		GeocodeTimeout:   cfg.Geocode.Timeout.Duration(),
	}
}

type RouterOption func(*router)

func WithAnswerCache(cache AnswerCache) RouterOption {
	return func(r *router) {
		r.cache = cache
	}
}

func NewRouter(cfg RouterConfig, index Index, chat ChatModel, geocoder Geocoder, opts ...RouterOption) Router {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	r := &router{
		cfg:      cfg,
		index:    index,
		chat:     chat,
		geocoder: geocoder,
		log: zap.L().With(
			zap.String("service", "zoningqa"),
			zap.String("component", "router"),
		),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type router struct {
	cfg      RouterConfig
	index    Index
	chat     ChatModel
	geocoder Geocoder
	cache    AnswerCache
	log      *zap.Logger
}

func (r *router) Answer(ctx context.Context, question string) string {
	if address, ok := ParseAddress(question); ok {
		return r.answerAddress(ctx, address)
	}

	return r.answerDocument(ctx, question)
}

func (r *router) answerAddress(ctx context.Context, address string) string {
	log := r.log.With(
		zap.String("action", "address_lookup"),
		zap.String("address", address),
	)

	if r.geocoder == nil {
		log.Warn("geocoder not configured")
		return ZoningUnavailableAnswer
	}

	ctx, cancel := withTimeout(ctx, r.cfg.GeocodeTimeout)
	defer cancel()

	attrs, err := r.geocoder.Lookup(ctx, address)
	if err != nil {
		log.Warn(err.Error())
		return ZoningUnavailableAnswer
	}

	zoning := attrs.Zoning()
	if zoning.Empty() {
		log.Info("no recognizable zoning fields", zap.Int("keys", len(attrs)))
	}

	return ZoningAnswer(zoning.District, zoning.Overlay, zoning.Borough)
}

func (r *router) answerDocument(ctx context.Context, question string) string {
	log := r.log.With(
		zap.String("action", "document_qa"),
	)

	key := r.cacheKey(question)
	if r.cache != nil {
		answer, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warn("answer cache get failed", zap.Error(err))
		} else if ok {
			log.Info("answer cache hit")
			return answer
		}
	}

	chunks, err := r.retrieve(ctx, question)
	if err != nil {
		log.Error("retrieval failed", zap.Error(err))
		return UnexpectedErrorAnswer(err)
	}

	if len(chunks) == 0 {
		log.Info("no relevant chunks")
		return NoInformationAnswer
	}

	reference := TruncateContext(BuildContext(chunks), r.cfg.MaxContextChars)
	messages := BuildMessages(question, reference)

	answer, err := r.complete(ctx, messages)
	if err != nil {
		log.Error("completion failed", zap.Error(err))
		return UnexpectedErrorAnswer(err)
	}

	log.Info("answered",
		zap.Int("chunks", len(chunks)),
		zap.Int("context_len", len(reference)),
	)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, answer); err != nil {
			log.Warn("answer cache set failed", zap.Error(err))
		}
	}

	return answer
}

func (r *router) retrieve(ctx context.Context, question string) ([]Chunk, error) {
	if r.index == nil {
		return nil, ErrIndexNotSet
	}

	ctx, cancel := withTimeout(ctx, r.cfg.RetrievalTimeout)
	defer cancel()

	return r.index.Retrieve(ctx, question, r.cfg.TopK)
}

func (r *router) complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if r.chat == nil {
		return "", ErrChatModelNotSet
	}

	ctx, cancel := withTimeout(ctx, r.cfg.ChatTimeout)
	defer cancel()

	return r.chat.Complete(ctx, messages, CompletionOptions{
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
}

func (r *router) cacheKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))

	model := ""
	if r.chat != nil {
		model = r.chat.Model()
	}

	hash := sha256.Sum256([]byte(model + "|" + normalized))
	return "answer_" + hex.EncodeToString(hash[:12])
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
