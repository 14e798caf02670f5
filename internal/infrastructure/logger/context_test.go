package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestWithContext(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	ctxWithLogger := WithContext(ctx, logger)

	retrievedLogger := FromContext(ctxWithLogger)
	assert.NotNil(t, retrievedLogger)
}

func TestFromContext_NotFound(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// Should return a no-op logger
	assert.NotNil(t, logger)
}

func TestWithJobID(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	jobID := "job-123"

	newCtx, newLogger := WithJobID(ctx, logger, jobID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, jobID, GetJobID(newCtx))
}

func TestWithOrganizationID(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	orgID := "org-456"

	newCtx, newLogger := WithOrganizationID(ctx, logger, orgID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, orgID, GetOrganizationID(newCtx))
}

func TestWithStoreID(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	storeID := "store-789"

	newCtx, newLogger := WithStoreID(ctx, logger, storeID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, storeID, GetStoreID(newCtx))
}

func TestWithPlatform(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()

	newCtx, newLogger := WithPlatform(ctx, logger, "shopee")

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, "shopee", GetPlatform(newCtx))
}

func TestGetJobID_NotFound(t *testing.T) {
	assert.Empty(t, GetJobID(context.Background()))
}

func TestGetOrganizationID_NotFound(t *testing.T) {
	assert.Empty(t, GetOrganizationID(context.Background()))
}

func TestGetStoreID_NotFound(t *testing.T) {
	assert.Empty(t, GetStoreID(context.Background()))
}

func TestGetPlatform_NotFound(t *testing.T) {
	assert.Empty(t, GetPlatform(context.Background()))
}

func TestContextChaining(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()

	// Chain multiple context enrichments
	ctx, logger = WithJobID(ctx, logger, "job-1")
	ctx, logger = WithOrganizationID(ctx, logger, "org-1")
	ctx, logger = WithStoreID(ctx, logger, "store-1")
	ctx, logger = WithPlatform(ctx, logger, "tiktok")

	assert.Equal(t, "job-1", GetJobID(ctx))
	assert.Equal(t, "org-1", GetOrganizationID(ctx))
	assert.Equal(t, "store-1", GetStoreID(ctx))
	assert.Equal(t, "tiktok", GetPlatform(ctx))
	assert.NotNil(t, logger)
}

func TestContextKeys(t *testing.T) {
	// Verify context keys are unique
	assert.NotEqual(t, LoggerKey, JobIDKey)
	assert.NotEqual(t, JobIDKey, OrganizationIDKey)
	assert.NotEqual(t, OrganizationIDKey, StoreIDKey)
	assert.NotEqual(t, StoreIDKey, PlatformKey)
}

// newCaptureLogger returns a JSON logger writing to the returned buffer.
func newCaptureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

func TestContextLogger_InjectsSyncFields(t *testing.T) {
	logger, buf := newCaptureLogger()

	ctx := context.Background()
	ctx, _ = WithJobID(ctx, zap.NewNop(), "job-42")
	ctx, _ = WithStoreID(ctx, zap.NewNop(), "store-7")

	WithLogger(ctx, logger).Info("sync started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sync started", entry["msg"])
	assert.Equal(t, "job-42", entry["job_id"])
	assert.Equal(t, "store-7", entry["store_id"])
}

func TestContextLogger_FromContext(t *testing.T) {
	logger, buf := newCaptureLogger()

	ctx := WithContext(context.Background(), logger)
	ctx, _ = WithPlatform(ctx, logger, "storefront")

	L(ctx).Warn("rate limited")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rate limited", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "storefront", entry["platform"])
}

func TestContextLogger_NilLoggerDoesNotPanic(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}

	// Should not panic when logging
	assert.NotPanics(t, func() {
		cl.Info("message on nil logger")
	})
}

func TestContextLogger_With(t *testing.T) {
	logger, buf := newCaptureLogger()

	cl := WithLogger(context.Background(), logger).With(zap.String("attempt", "2"))
	cl.Debug("retrying")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "retrying", entry["msg"])
	assert.Equal(t, "2", entry["attempt"])
}

func TestContextLogger_ZapAndSugar(t *testing.T) {
	logger, _ := newCaptureLogger()
	cl := WithLogger(context.Background(), logger)

	assert.NotNil(t, cl.Zap())
	assert.NotNil(t, cl.Sugar())
}
