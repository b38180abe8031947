package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	StoreBackendPinecone = "pinecone"
	StoreBackendSQLite   = "sqlite"
)

type rawCfg struct {
	// Application configuration
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed source files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://digest.example.com)"`
	Serve             bool   `long:"serve" env:"SERVE" description:"Run the HTTP API and scheduler instead of a single pipeline run"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"86400" description:"Seconds between scheduled pipeline runs in serve mode"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Providers
	GoogleAPIKey        string `long:"google-api-key" env:"GOOGLE_API_KEY" description:"Gemini API key used for embeddings"`
	EmbeddingModel      string `long:"embedding-model" env:"EMBEDDING_MODEL" default:"models/embedding-001" description:"Embedding model name"`
	EmbeddingBaseURL    string `long:"embedding-base-url" env:"EMBEDDING_BASE_URL" default:"https://generativelanguage.googleapis.com/" description:"Gemini API base URL (the API version is appended by the client)"`
	EmbeddingDimensions int    `long:"embedding-dimensions" env:"EMBEDDING_DIMENSIONS" default:"768" description:"Embedding vector dimension"`
	PerplexityAPIKey    string `long:"perplexity-api-key" env:"PERPLEXITY_API_KEY" description:"Perplexity API key used for summaries"`
	SummaryModel        string `long:"summary-model" env:"SUMMARY_MODEL" default:"sonar-pro" description:"Summarization model name"`
	SummaryBaseURL      string `long:"summary-base-url" env:"SUMMARY_BASE_URL" default:"https://api.perplexity.ai" description:"OpenAI-compatible summarization API base URL"`
	SpeechAPIKey        string `long:"speech-api-key" env:"SPEECH_API_KEY" description:"API key for the speech synthesis provider (optional)"`
	SpeechBaseURL       string `long:"speech-base-url" env:"SPEECH_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI-compatible speech API base URL"`
	SpeechModel         string `long:"speech-model" env:"SPEECH_MODEL" default:"tts-1" description:"Speech synthesis model"`
	SpeechVoice         string `long:"speech-voice" env:"SPEECH_VOICE" default:"alloy" description:"Speech synthesis voice"`

	// Vector store
	StoreBackend      string `long:"store" env:"STORE_BACKEND" default:"pinecone" choice:"pinecone" choice:"sqlite" description:"Vector store backend"`
	PineconeAPIKey    string `long:"pinecone-api-key" env:"PINECONE_API_KEY" description:"Pinecone API key"`
	PineconeIndexHost string `long:"pinecone-index-host" env:"PINECONE_INDEX_HOST" description:"Pinecone index host (e.g., https://articles-abc123.svc.us-east-1.pinecone.io)"`
	SQLitePath        string `long:"sqlite-path" env:"SQLITE_PATH" default:"./data/digest.db" description:"SQLite database path for the local vector store"`

	// Summary cache
	RedisAddr       string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the summary cache (optional, e.g., localhost:6379)"`
	RedisPassword   string        `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB         int           `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	SummaryCacheTTL time.Duration `long:"summary-cache-ttl" env:"SUMMARY_CACHE_TTL" default:"48h" description:"How long cached summaries are reused"`

	// Limits
	FreshnessWindow     time.Duration `long:"freshness-window" env:"FRESHNESS_WINDOW" default:"24h" description:"Only entries published within this window are processed"`
	MinContentLength    int           `long:"min-content-length" env:"MIN_CONTENT_LENGTH" default:"100" description:"Minimum scraped content length"`
	MaxContentLength    int           `long:"max-content-length" env:"MAX_CONTENT_LENGTH" default:"15000" description:"Scraped content is truncated to this length"`
	EmbeddingInputLimit int           `long:"embedding-input-limit" env:"EMBEDDING_INPUT_LIMIT" default:"10000" description:"Maximum characters sent to the embedding provider"`
	SummaryInputLimit   int           `long:"summary-input-limit" env:"SUMMARY_INPUT_LIMIT" default:"12000" description:"Maximum characters sent to the summarization provider"`
	MinSummaryLength    int           `long:"min-summary-length" env:"MIN_SUMMARY_LENGTH" default:"50" description:"Summaries shorter than this are retried"`
	ScrapeConcurrency   int           `long:"scrape-concurrency" env:"SCRAPE_CONCURRENCY" default:"3" description:"Maximum in-flight scrapes in a batch"`
	MaxAttempts         int           `long:"max-attempts" env:"MAX_ATTEMPTS" default:"3" description:"Attempts per remote call"`
	BackoffUnit         time.Duration `long:"backoff-unit" env:"BACKOFF_UNIT" default:"1s" description:"Base unit of the exponential retry backoff"`
	DeleteBatchSize     int           `long:"delete-batch-size" env:"DELETE_BATCH_SIZE" default:"100" description:"Records deleted per batch when clearing the store"`
	DeletePause         time.Duration `long:"delete-pause" env:"DELETE_PAUSE" default:"1s" description:"Pause between delete batches"`
	ArticlePause        time.Duration `long:"article-pause" env:"ARTICLE_PAUSE" default:"2s" description:"Pause between processed articles"`
	VerifyDelay         time.Duration `long:"verify-delay" env:"VERIFY_DELAY" default:"1s" description:"Delay before read-back verification of a write"`
	FetchTimeout        time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout of plain HTTP fetches"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newsletter Digest/1.0" description:"User agent string for feed requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	limits := DefaultLimits()
	limits.FreshnessWindow = raw.FreshnessWindow
	limits.MinContentLength = raw.MinContentLength
	limits.MaxContentLength = raw.MaxContentLength
	limits.EmbeddingInputLimit = raw.EmbeddingInputLimit
	limits.SummaryInputLimit = raw.SummaryInputLimit
	limits.MinSummaryLength = raw.MinSummaryLength
	limits.ScrapeConcurrency = raw.ScrapeConcurrency
	limits.MaxAttempts = raw.MaxAttempts
	limits.BackoffUnit = raw.BackoffUnit
	limits.DeleteBatchSize = raw.DeleteBatchSize
	limits.DeletePause = raw.DeletePause
	limits.ArticlePause = raw.ArticlePause
	limits.VerifyDelay = raw.VerifyDelay
	limits.FetchTimeout = raw.FetchTimeout

	cfg := &Cfg{
		FeedsDir:            raw.FeedsDir,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		Serve:               raw.Serve,
		SchedulerInterval:   raw.SchedulerInterval,
		APIAccessKey:        raw.APIAccessKey,
		GoogleAPIKey:        raw.GoogleAPIKey,
		EmbeddingModel:      raw.EmbeddingModel,
		EmbeddingBaseURL:    raw.EmbeddingBaseURL,
		EmbeddingDimensions: raw.EmbeddingDimensions,
		PerplexityAPIKey:    raw.PerplexityAPIKey,
		SummaryModel:        raw.SummaryModel,
		SummaryBaseURL:      raw.SummaryBaseURL,
		SpeechAPIKey:        raw.SpeechAPIKey,
		SpeechBaseURL:       raw.SpeechBaseURL,
		SpeechModel:         raw.SpeechModel,
		SpeechVoice:         raw.SpeechVoice,
		StoreBackend:        raw.StoreBackend,
		PineconeAPIKey:      raw.PineconeAPIKey,
		PineconeIndexHost:   raw.PineconeIndexHost,
		SQLitePath:          raw.SQLitePath,
		RedisAddr:           raw.RedisAddr,
		RedisPassword:       raw.RedisPassword,
		RedisDB:             raw.RedisDB,
		SummaryCacheTTL:     raw.SummaryCacheTTL,
		Limits:              limits,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.StoreBackend == StoreBackendPinecone && cfg.PineconeIndexHost == "" {
		return fmt.Errorf("pinecone index host is required for the pinecone store")
	}

	positive := map[string]int{
		"embedding dimensions":  cfg.EmbeddingDimensions,
		"min content length":    cfg.Limits.MinContentLength,
		"max content length":    cfg.Limits.MaxContentLength,
		"embedding input limit": cfg.Limits.EmbeddingInputLimit,
		"summary input limit":   cfg.Limits.SummaryInputLimit,
		"scrape concurrency":    cfg.Limits.ScrapeConcurrency,
		"max attempts":          cfg.Limits.MaxAttempts,
		"delete batch size":     cfg.Limits.DeleteBatchSize,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.Limits.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
