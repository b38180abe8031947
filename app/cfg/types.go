package cfg

import "time"

type Cfg struct {
	// Application configuration
	FeedsDir          string
	Port              string
	BaseUrl           string
	Serve             bool
	SchedulerInterval int
	APIAccessKey      string

	// Providers
	GoogleAPIKey        string
	EmbeddingModel      string
	EmbeddingBaseURL    string
	EmbeddingDimensions int
	PerplexityAPIKey    string
	SummaryModel        string
	SummaryBaseURL      string
	SpeechAPIKey        string
	SpeechBaseURL       string
	SpeechModel         string
	SpeechVoice         string

	// Vector store
	StoreBackend      string
	PineconeAPIKey    string
	PineconeIndexHost string
	SQLitePath        string

	// Summary cache
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration

	Limits Limits

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// Limits holds the thresholds and pacing delays of a pipeline run.
type Limits struct {
	FreshnessWindow     time.Duration
	MinContentLength    int
	MaxContentLength    int
	EmbeddingInputLimit int
	SummaryInputLimit   int
	MinSummaryLength    int
	ScrapeConcurrency   int
	MaxAttempts         int
	BackoffUnit         time.Duration
	DeleteBatchSize     int
	DeletePause         time.Duration
	ArticlePause        time.Duration
	VerifyDelay         time.Duration
	RenderTimeout       time.Duration
	RenderSettle        time.Duration
	RetryRenderTimeout  time.Duration
	RetryRenderSettle   time.Duration
	FetchTimeout        time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		FreshnessWindow:     24 * time.Hour,
		MinContentLength:    100,
		MaxContentLength:    15000,
		EmbeddingInputLimit: 10000,
		SummaryInputLimit:   12000,
		MinSummaryLength:    50,
		ScrapeConcurrency:   3,
		MaxAttempts:         3,
		BackoffUnit:         time.Second,
		DeleteBatchSize:     100,
		DeletePause:         time.Second,
		ArticlePause:        2 * time.Second,
		VerifyDelay:         time.Second,
		RenderTimeout:       30 * time.Second,
		RenderSettle:        2 * time.Second,
		RetryRenderTimeout:  45 * time.Second,
		RetryRenderSettle:   3 * time.Second,
		FetchTimeout:        30 * time.Second,
	}
}
