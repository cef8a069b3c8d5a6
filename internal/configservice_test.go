package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/sethvargo/go-envconfig"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func loggerContext() context.Context {
	return ctxhelper.WithLogger(context.Background(), logrus.NewEntry(logrus.New()))
}

func newTestConfigService(file string, env map[string]string) *configService {
	s := NewConfigService(file).(*configService)
	s.lookuper = envconfig.MapLookuper(env)
	return s
}

func TestConfigDefaultsWithoutFile(t *testing.T) {
	ctx := loggerContext()
	s := newTestConfigService(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, s.Load(ctx))

	conf := s.GetConfig(ctx)
	assert.Equal(t, ":5000", conf.ListenAddress)
	assert.Equal(t, models.StorageSQLite, conf.Storage.Driver)
	assert.Equal(t, 6378.0, conf.Geo.EarthRadius)
	assert.Equal(t, "zip", conf.Query.ZipParam)
	assert.Equal(t, "miles", conf.Query.DistanceParam)
	assert.Empty(t, conf.RateLimit.TrustedProxies)
	assert.False(t, conf.Production())
}

func TestConfigFileAndEnvironment(t *testing.T) {
	ctx := loggerContext()
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"listenAddress": ":8080",
		"env": "production",
		"storage": {"driver": "mongo", "mongoDatabase": "fromfile"},
		"geo": {"earthRadius": 3963.2},
		"rateLimit": {"requests": 5}
	}`), 0600))

	s := newTestConfigService(file, map[string]string{
		"DEVCAMPER_MONGO_DATABASE":  "fromenv",
		"DEVCAMPER_JWT_SECRET":      "s3cr3t",
		"DEVCAMPER_TRUSTED_PROXIES": "10.0.0.0/8,127.0.0.1",
	})
	require.NoError(t, s.Load(ctx))

	conf := s.GetConfig(ctx)
	assert.Equal(t, ":8080", conf.ListenAddress)
	assert.True(t, conf.Production())
	assert.Equal(t, models.StorageMongo, conf.Storage.Driver)
	assert.Equal(t, "fromenv", conf.Storage.MongoDatabase)
	assert.Equal(t, "s3cr3t", conf.Auth.JWTSecret)
	assert.Equal(t, 3963.2, conf.Geo.EarthRadius)
	assert.Equal(t, 5, conf.RateLimit.Requests)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, conf.RateLimit.TrustedProxies)
	// Values missing from the file keep their defaults
	assert.Equal(t, 10, conf.RateLimit.WindowMinutes)
	assert.Equal(t, "devcamper.db", conf.Storage.SQLiteFile)
}

func TestConfigBrokenFile(t *testing.T) {
	ctx := loggerContext()
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"listenAddress": `), 0600))
	assert.Error(t, newTestConfigService(file, nil).Load(ctx))
}

func TestConfigWriteAndReload(t *testing.T) {
	ctx := loggerContext()
	dir := t.TempDir()
	s := newTestConfigService(filepath.Join(dir, "missing.json"), map[string]string{"DEVCAMPER_LOG_LEVEL": "debug"})
	require.NoError(t, s.Load(ctx))

	file := filepath.Join(dir, "written.json")
	require.NoError(t, s.WriteToFile(ctx, file))

	reloaded := newTestConfigService(file, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.GetConfig(ctx), reloaded.GetConfig(ctx))
	assert.Equal(t, "debug", reloaded.GetConfig(ctx).Log.Level)
}
