package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerCarriesTxnID(t *testing.T) {
	ctx := WithTxnID(context.Background(), "txn-123")

	assert.Equal(t, "txn-123", Logger(ctx).Data["txnid"])
	assert.NotContains(t, Logger(context.Background()).Data, "txnid")
	assert.NotContains(t, Logger(nil).Data, "txnid")
}

func TestDeviceLogger(t *testing.T) {
	ctx := WithTxnID(context.Background(), "txn-456")
	e := Device(ctx, "192.168.1.102")

	assert.Equal(t, "192.168.1.102", e.Data["device"])
	assert.Equal(t, "txn-456", e.Data["txnid"])
	assert.Contains(t, e.Data, "instance")
}

func TestConfigure(t *testing.T) {
	logrus.SetLevel(logrus.InfoLevel)
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	cfg := viper.New()
	cfg.Set("logging.location", "stderr")
	cfg.Set("logging.level", "warn")
	cfg.Set("logging.format", "json")
	require.NoError(t, Configure(cfg))

	assert.False(t, logrus.IsLevelEnabled(logrus.InfoLevel))
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}

func TestConfigureRejectsBadSettings(t *testing.T) {
	logrus.SetLevel(logrus.InfoLevel)
	t.Cleanup(func() { logrus.SetLevel(logrus.InfoLevel) })

	cfg := viper.New()
	cfg.Set("logging.location", "stderr")
	cfg.Set("logging.level", "loud")
	assert.EqualError(t, Configure(cfg), "bad log level: [loud]")

	cfg.Set("logging.level", "info")
	cfg.Set("logging.format", "xml")
	assert.EqualError(t, Configure(cfg), "bad log format: [xml]")
}
