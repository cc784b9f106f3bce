package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyLambdaCompatFromEnv_FillsUnsetFields(t *testing.T) {
	t.Setenv("TABLE_NAME", "BirdAnalyiser")
	t.Setenv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:123456789012:tag-notifications")
	t.Setenv("ANNOT_BUCKET", "annotated-media")
	t.Setenv("CONF_THR", "0.5")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyLambdaCompatFromEnv())

	require.Equal(t, "BirdAnalyiser", cfg.MediaTableName)
	require.Equal(t, "arn:aws:sns:us-east-1:123456789012:tag-notifications", cfg.TopicARN)
	require.Equal(t, "annotated-media", cfg.UploadBucket)
	require.Equal(t, 0.5, cfg.DetectorConfidence)
}

func TestApplyLambdaCompatFromEnv_FlagValuesWin(t *testing.T) {
	t.Setenv("TABLE_NAME", "legacy-table")
	t.Setenv("SNS_TOPIC_ARN", "arn:legacy")

	cfg := DefaultConfig()
	cfg.MediaTableName = "flag-table"
	cfg.TopicARN = "arn:flag"
	require.NoError(t, cfg.ApplyLambdaCompatFromEnv())

	require.Equal(t, "flag-table", cfg.MediaTableName)
	require.Equal(t, "arn:flag", cfg.TopicARN)
}

func TestApplyLambdaCompatFromEnv_InvalidThreshold(t *testing.T) {
	t.Setenv("CONF_THR", "very")
	cfg := DefaultConfig()
	require.Error(t, cfg.ApplyLambdaCompatFromEnv())
}
