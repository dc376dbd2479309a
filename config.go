package recipestore

import "time"

type ClientConfig struct {
	BaseURL          string        `env:"RECIPES_BASE_URL,default=http://localhost:8080"`
	RequestTimeout   time.Duration `env:"RECIPES_REQUEST_TIMEOUT,default=10s"`
	OperationLogPath string        `env:"RECIPES_OPERATION_LOG_PATH"`
	SlackWebhookURL  string        `env:"SLACK_WEBHOOK_URL"`
	SlackChannel     string        `env:"SLACK_CHANNEL,default=#recipes-ops"`
	Dump             bool          `env:"RECIPES_DUMP,default=false"`
	OtelEnabled      bool          `env:"RECIPES_OTEL_ENABLED,default=false"`
}

type ServiceConfig struct {
	Addr           string   `env:"RECIPES_ADDR,default=:8080"`
	Backend        string   `env:"RECIPES_BACKEND,default=file"`
	FilePath       string   `env:"RECIPES_FILE_PATH,default=artifacts/recipes.json"`
	S3Bucket       string   `env:"RECIPES_S3_BUCKET"`
	S3Key          string   `env:"RECIPES_S3_KEY,default=recipes.json"`
	AllowedOrigins []string `env:"RECIPES_ALLOWED_ORIGINS,default=*"`
}
