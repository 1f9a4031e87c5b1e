package zoningqa

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/zoningqa/vector"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session ID")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrInvalidThreadID = errors.New("invalid thread id")
	ErrIndexNotSet     = errors.New("document index not set")
	ErrChatModelNotSet = errors.New("chat model not set")
)

type ContextKey string

const (
	SessionID ContextKey = "session_id"
)

type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     vector.Config   `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Geocode   GeocodeConfig   `yaml:"geocode"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
}

type CorpusConfig struct {
	Dir string `yaml:"dir"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"baseURL"`
	APIKeyEnv string `yaml:"apiKeyEnv"`
}

type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"baseURL"`
	APIKeyEnv   string   `yaml:"apiKeyEnv"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"maxTokens"`
	Timeout     Duration `yaml:"timeout"`
}

type RetrievalConfig struct {
	K               int      `yaml:"k"`
	MaxContextChars int      `yaml:"maxContextChars"`
	Timeout         Duration `yaml:"timeout"`
}

type IngestConfig struct {
	ChunkSize    int `yaml:"chunkSize"`
	ChunkOverlap int `yaml:"chunkOverlap"`
}

type GeocodeConfig struct {
	BaseURL   string   `yaml:"baseURL"`
	APIKeyEnv string   `yaml:"apiKeyEnv"`
	Timeout   Duration `yaml:"timeout"`
}

type SessionConfig struct {
	IdleTTL       Duration `yaml:"idleTTL"`
	SweepInterval Duration `yaml:"sweepInterval"`
}

type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addr     string   `yaml:"addr"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

const (
	DefaultTopK            = 4
	DefaultMaxContextChars = 12000
	DefaultTemperature     = 0.2
	DefaultMaxTokens       = 512
	DefaultChunkSize       = 1200
	DefaultChunkOverlap    = 150

	// Placeholder endpoint; the Geosupport contract was never confirmed.
	DefaultGeocodeBaseURL = "https://a030-goat.nyc.gov/GOAT/Function1A"
	DefaultGroqBaseURL    = "https://api.groq.com/openai/v1"
)

// ApplyDefaults fills every zero value the service depends on.
func (cfg *Config) ApplyDefaults() {
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "zoning"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm:l6-v2"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "groq"
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama-3.1-8b-instant"
	}

	if cfg.LLM.Provider == "groq" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultGroqBaseURL
	}

	if cfg.LLM.APIKeyEnv == "" {
		switch cfg.LLM.Provider {
		case "groq":
			cfg.LLM.APIKeyEnv = "GROQ_API_KEY"
		case "openai":
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		case "anthropic":
			cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
	}

	// an explicit zero is a valid, deterministic setting
	if cfg.LLM.Temperature == nil {
		temperature := DefaultTemperature
		cfg.LLM.Temperature = &temperature
	}

	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}

	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}

	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = DefaultTopK
	}

	if cfg.Retrieval.MaxContextChars <= 0 {
		cfg.Retrieval.MaxContextChars = DefaultMaxContextChars
	}

	if cfg.Retrieval.Timeout == 0 {
		cfg.Retrieval.Timeout = Duration(30 * time.Second)
	}

	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = DefaultChunkSize
	}

	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = DefaultChunkOverlap
	}

	if cfg.Ingest.ChunkOverlap < 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		cfg.Ingest.ChunkOverlap = DefaultChunkOverlap
	}

	if cfg.Geocode.BaseURL == "" {
		cfg.Geocode.BaseURL = DefaultGeocodeBaseURL
	}

	if cfg.Geocode.APIKeyEnv == "" {
		cfg.Geocode.APIKeyEnv = "GEOSUPPORT_API_KEY"
	}

	if cfg.Geocode.Timeout == 0 {
		cfg.Geocode.Timeout = Duration(10 * time.Second)
	}

	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = Duration(2 * time.Hour)
	}

	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = Duration(5 * time.Minute)
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(24 * time.Hour)
	}
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type ThreadID int

// Turn is immutable once appended to a thread.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Thread struct {
	ID    ThreadID `json:"id"`
	Turns []Turn   `json:"turns"`
}

const (
	maxTitleRunes      = 48
	DefaultThreadTitle = "New conversation"
	titleEllipsis      = "…"
)

// Title is the first user turn, shortened, or the fallback label.
func (t *Thread) Title() string {
	for _, turn := range t.Turns {
		if turn.Role != RoleUser {
			continue
		}

		content := strings.Join(strings.Fields(turn.Content), " ")
		if content == "" {
			continue
		}

		if utf8.RuneCountInString(content) <= maxTitleRunes {
			return content
		}

		runes := []rune(content)
		return strings.TrimSpace(string(runes[:maxTitleRunes])) + titleEllipsis
	}

	return DefaultThreadTitle
}

// UpdatedAt returns the time of the last turn, or the zero time.
func (t *Thread) UpdatedAt() time.Time {
	if len(t.Turns) == 0 {
		return time.Time{}
	}

	return t.Turns[len(t.Turns)-1].CreatedAt
}

type ThreadSummary struct {
	ID        ThreadID  `json:"id"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Exchange is the pair of turns produced by one submission.
type Exchange struct {
	ThreadID ThreadID `json:"thread_id"`
	Question Turn     `json:"question"`
	Answer   Turn     `json:"answer"`
}

type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   string `json:"page"`
	Rank   int    `json:"rank"`
}
