package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	PublicURL       string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	AllowedOrigins     []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	GuestRatePerMinute int      `envconfig:"GUEST_RATE_PER_MINUTE" default:"6"`

	// Intake drafts
	DraftBackend    string `envconfig:"DRAFT_BACKEND" default:"cookie"` // cookie | redis
	DraftCookieName string `envconfig:"DRAFT_COOKIE_NAME" default:"mutari_draft"`
	DraftMaxAgeSec  int    `envconfig:"DRAFT_MAX_AGE_SEC" default:"1209600"` // 14 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Media storage
	MediaBackend       string `envconfig:"MEDIA_BACKEND" default:"none"` // gcs | s3 | none
	GCSBucket          string `envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`
	S3BucketName       string `envconfig:"S3_BUCKET_NAME"`

	// Transactional email
	MailAPIURL  string `envconfig:"MAIL_API_URL" default:"https://api.resend.com/emails"`
	MailAPIKey  string `envconfig:"MAIL_API_KEY"`
	MailFrom    string `envconfig:"MAIL_FROM" default:"Mutari <noreply@mutari.ro>"`
	MailReplyTo string `envconfig:"MAIL_REPLY_TO"`
	MailLogOnly bool   `envconfig:"MAIL_LOG_ONLY" default:"false"`

	ReminderAfterHours int `envconfig:"REMINDER_AFTER_HOURS" default:"48"`

	// CLI client
	APIURL    string `envconfig:"API_URL" default:"http://localhost:8080"`
	DraftFile string `envconfig:"DRAFT_FILE"`
}
