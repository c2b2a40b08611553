package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	MigrationsDir  string
	SigningKey     []byte
	AllowedOrigins []string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	AvatarBucket   string
	MediaBucket    string

	MediaUploadTimeout time.Duration
	PresignTTL         time.Duration
}

const (
	defaultMediaUploadTimeout = 30 * time.Second
	defaultPresignTTL         = time.Hour
)

// Params carries the raw flag values before validation and decoding.
type Params struct {
	ServerAddr     string
	DatabaseDSN    string
	MigrationsDir  string
	SigningSecret  string
	AllowedOrigins []string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	AvatarBucket   string
	MediaBucket    string

	MediaUploadTimeout time.Duration
	PresignTTL         time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(p Params) (*Config, error) {
	if p.ServerAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if p.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if p.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if p.S3Region == "" {
		return nil, fmt.Errorf("object store region cannot be empty")
	}
	if p.AvatarBucket == "" || p.MediaBucket == "" {
		return nil, fmt.Errorf("avatar and media buckets cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(p.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if p.MediaUploadTimeout <= 0 {
		p.MediaUploadTimeout = defaultMediaUploadTimeout
	}
	if p.PresignTTL <= 0 {
		p.PresignTTL = defaultPresignTTL
	}

	return &Config{
		ServerAddr:         p.ServerAddr,
		DatabaseDSN:        p.DatabaseDSN,
		MigrationsDir:      p.MigrationsDir,
		SigningKey:         signingKey,
		AllowedOrigins:     p.AllowedOrigins,
		S3Endpoint:         p.S3Endpoint,
		S3Region:           p.S3Region,
		S3AccessKey:        p.S3AccessKey,
		S3SecretKey:        p.S3SecretKey,
		S3UsePathStyle:     p.S3UsePathStyle,
		AvatarBucket:       p.AvatarBucket,
		MediaBucket:        p.MediaBucket,
		MediaUploadTimeout: p.MediaUploadTimeout,
		PresignTTL:         p.PresignTTL,
	}, nil
}
