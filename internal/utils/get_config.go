package utils

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`

	// HTTP
	AppPort   string `yaml:"APP_PORT"`
	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`
	ReportRecipient  string `yaml:"REPORT_RECIPIENT"`

	// AWS S3 configuration
	AWSS3Bucket        string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region        string `yaml:"AWS_S3_REGION"`
	AWSAccessKey       string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey       string `yaml:"AWS_SECRET_KEY"`
	AWSS3InboxPrefix   string `yaml:"AWS_S3_INBOX_PREFIX"`
	AWSS3ArchivePrefix string `yaml:"AWS_S3_ARCHIVE_PREFIX"`

	// Pipeline
	InboxDir             string `yaml:"INBOX_DIR"`
	ArchiveDir           string `yaml:"ARCHIVE_DIR"`
	MaxRetries           string `yaml:"MAX_RETRIES"`
	Workers              string `yaml:"WORKERS"`
	StageTimeoutSeconds  string `yaml:"STAGE_TIMEOUT_SECONDS"`
	FuzzyMinRatio        string `yaml:"FUZZY_MIN_RATIO"`
	KeywordMinScore      string `yaml:"KEYWORD_MIN_SCORE"`
	AutoAcceptConfidence string `yaml:"AUTO_ACCEPT_CONFIDENCE"`
	ReviewConfidence     string `yaml:"REVIEW_CONFIDENCE"`
}

var (
	config     Config
	configPath = "config.yaml"
)

// SetConfigPath changes the file read by LoadConfig.
func SetConfigPath(path string) {
	if path != "" {
		configPath = path
	}
}

func LoadConfig() {
	file, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
		return
	}

	err = yaml.Unmarshal(file, &config)
	if err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
		return
	}

	// Set environment variables for keys that should be accessible via os.Getenv
	os.Setenv("JWT_SECRET", config.JWTSecret)
	os.Setenv("AWS_S3_BUCKET", config.AWSS3Bucket)
	os.Setenv("AWS_S3_REGION", config.AWSS3Region)
	os.Setenv("AWS_ACCESS_KEY", config.AWSAccessKey)
	os.Setenv("AWS_SECRET_KEY", config.AWSSecretKey)
}

func GetConfig(key string) string {
	switch key {
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "DB_SSLMODE":
		if config.DBSSLMode == "" {
			return "disable"
		}
		return config.DBSSLMode
	case "APP_PORT":
		if config.AppPort == "" {
			return "8080"
		}
		return config.AppPort
	case "JWT_SECRET":
		return config.JWTSecret
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "REPORT_RECIPIENT":
		return config.ReportRecipient
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "AWS_S3_INBOX_PREFIX":
		if config.AWSS3InboxPrefix == "" {
			return "inbox/"
		}
		return config.AWSS3InboxPrefix
	case "AWS_S3_ARCHIVE_PREFIX":
		if config.AWSS3ArchivePrefix == "" {
			return "archive/"
		}
		return config.AWSS3ArchivePrefix
	case "INBOX_DIR":
		return config.InboxDir
	case "ARCHIVE_DIR":
		return config.ArchiveDir
	case "MAX_RETRIES":
		return config.MaxRetries
	case "WORKERS":
		return config.Workers
	case "STAGE_TIMEOUT_SECONDS":
		return config.StageTimeoutSeconds
	case "FUZZY_MIN_RATIO":
		return config.FuzzyMinRatio
	case "KEYWORD_MIN_SCORE":
		return config.KeywordMinScore
	case "AUTO_ACCEPT_CONFIDENCE":
		return config.AutoAcceptConfidence
	case "REVIEW_CONFIDENCE":
		return config.ReviewConfidence
	default:
		return ""
	}
}

type Pipeline struct {
	MaxRetries           int
	Workers              int
	StageTimeout         time.Duration
	FuzzyMinRatio        float64
	KeywordMinScore      float64
	AutoAcceptConfidence float64
	ReviewConfidence     float64
}

// PipelineConfig returns the pipeline tuning values, falling back to
// defaults for anything missing or malformed.
func PipelineConfig() Pipeline {
	return Pipeline{
		MaxRetries:           intOr(GetConfig("MAX_RETRIES"), 3),
		Workers:              intOr(GetConfig("WORKERS"), 1),
		StageTimeout:         time.Duration(intOr(GetConfig("STAGE_TIMEOUT_SECONDS"), 60)) * time.Second,
		FuzzyMinRatio:        floatOr(GetConfig("FUZZY_MIN_RATIO"), 0.8),
		KeywordMinScore:      floatOr(GetConfig("KEYWORD_MIN_SCORE"), 0.5),
		AutoAcceptConfidence: floatOr(GetConfig("AUTO_ACCEPT_CONFIDENCE"), 0.9),
		ReviewConfidence:     floatOr(GetConfig("REVIEW_CONFIDENCE"), 0.7),
	}
}

func intOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return def
	}
	return v
}
