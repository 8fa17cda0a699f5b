package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/activos-labs/activos-go/internal/platform/env"
)

type Config struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Region          string
	UseSSL          bool
	BucketTemplates string
	BucketGenerated string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("ACTIVOS_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:        env.String("ACTIVOS_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:       env.String("ACTIVOS_MINIO_ACCESS_KEY", "activos"),
		SecretKey:       env.String("ACTIVOS_MINIO_SECRET_KEY", "activosminio"),
		Region:          env.String("ACTIVOS_MINIO_REGION", "us-east-1"),
		UseSSL:          useSSL,
		BucketTemplates: env.String("ACTIVOS_MINIO_BUCKET_TEMPLATES", "actas-templates"),
		BucketGenerated: env.String("ACTIVOS_MINIO_BUCKET_GENERATED", "actas-generated"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketTemplates) == "" {
		return errors.New("templates bucket is required")
	}
	if strings.TrimSpace(c.BucketGenerated) == "" {
		return errors.New("generated bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
