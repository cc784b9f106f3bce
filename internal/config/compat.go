package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ApplyLambdaCompatFromEnv reads the environment variable names the original
// Lambda deployment used, so an existing deployment's configuration keeps
// working without translation. Dedicated MEDIATAG_* flags take precedence:
// compat values only fill fields still at their defaults or empty.
func (c *Config) ApplyLambdaCompatFromEnv() error {
	if c == nil {
		return nil
	}

	applyStringEnvIf("TABLE_NAME", &c.MediaTableName, c.MediaTableName == DefaultConfig().MediaTableName)
	applyStringEnvIf("USER_TABLE_NAME", &c.UserTableName, c.UserTableName == DefaultConfig().UserTableName)
	applyStringEnvIf("SNS_TOPIC_ARN", &c.TopicARN, c.TopicARN == "")
	applyStringEnvIf("ANNOT_BUCKET", &c.UploadBucket, c.UploadBucket == "")
	applyStringEnvIf("AWS_REGION", &c.AWSRegion, c.AWSRegion == "")

	if raw := strings.TrimSpace(os.Getenv("CONF_THR")); raw != "" {
		thr, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid CONF_THR: %w", err)
		}
		c.DetectorConfidence = thr
	}
	return nil
}

func applyStringEnvIf(name string, dst *string, unset bool) {
	if !unset {
		return
	}
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}
