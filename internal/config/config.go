package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"SUPABASE_DB_URL" required:"true"`
	JWTSecret          string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"visuals"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Gemini image generation settings
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion string `envconfig:"GEMINI_API_VERSION" default:"v1beta"`
	GeminiImageModel string `envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.5-flash-image"`
	GeminiTimeoutSec int    `envconfig:"GEMINI_TIMEOUT_SEC" default:"120"`

	// Max generation calls in flight within one variation loop. Kept at 1 to
	// respect external API rate limits, but configurable rather than an
	// implicit artifact of the loop shape.
	GenerationMaxInFlight int `envconfig:"GENERATION_MAX_IN_FLIGHT" default:"1"`

	// Stripe settings
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" required:"true"`
	StripePriceFree       string `envconfig:"STRIPE_PRICE_FREE" required:"true"`
	StripePriceMonthly    string `envconfig:"STRIPE_PRICE_MONTHLY" required:"true"`
	StripePriceAnnual     string `envconfig:"STRIPE_PRICE_ANNUAL" required:"true"`

	// Pub/Sub settings for render-job fanout
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	PubSubRenderTopic             string `envconfig:"PUBSUB_RENDER_TOPIC" default:"render-jobs"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`

	// Legal/static content directory
	LegalContentDir string `envconfig:"LEGAL_CONTENT_DIR" default:"./content/legal"`

	// Render orchestrator settings
	RenderQueueName           string `envconfig:"RENDER_QUEUE_NAME" default:"render_queue"`
	RenderPollTimeoutSec      int    `envconfig:"RENDER_POLL_TIMEOUT_SEC" default:"30"`
	RenderPollMaxMsg          int    `envconfig:"RENDER_POLL_MAX_MSG" default:"1"`
	RenderMaxRetries          int    `envconfig:"RENDER_MAX_RETRIES" default:"5"`
	RenderBackoffInitialSec   int    `envconfig:"RENDER_BACKOFF_INITIAL_SEC" default:"1"`
	RenderBackoffMaxSec       int    `envconfig:"RENDER_BACKOFF_MAX_SEC" default:"60"`
	RenderDeadLetterQueueName string `envconfig:"RENDER_DEAD_LETTER_QUEUE_NAME" default:"render_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
