package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vacstatus/vacstatus/internal/config"
	"github.com/vacstatus/vacstatus/pkg/log"
)

func TestReadDefaults(t *testing.T) {
	conf, errRead := config.Read("", true)
	require.NoError(t, errRead)

	require.True(t, conf.DB.AutoMigrate)
	require.Equal(t, log.Level("info"), conf.Log.Level)
	require.Equal(t, time.Minute*60, conf.Profile.CacheTTL)
	require.Equal(t, time.Hour, conf.Profile.AliasCooldown)
	require.Equal(t, time.Second*60, conf.Detector.Interval)
	require.Empty(t, conf.Metrics.Addr)
}

func TestReadMissingFile(t *testing.T) {
	_, errRead := config.Read("does-not-exist.yml", false)
	require.ErrorIs(t, errRead, config.ErrReadConfig)
}
