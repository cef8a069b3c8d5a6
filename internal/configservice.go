package internal

import (
	"encoding/json"
	"os"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/net/context"
)

// ConfigService loads and stores the application's configuration
type ConfigService interface {
	// Load loads the application config from its default file location. A missing file is no error - the defaults
	// are used instead.
	Load(ctx context.Context) error
	// LoadFromFile loads the configuration from the given JSON file and applies the environment overrides
	LoadFromFile(ctx context.Context, filename string) error
	// Write writes the current application configuration to the default file name
	Write(ctx context.Context) error
	// WriteToFile writes the current application configuration to a JSON file
	WriteToFile(ctx context.Context, filename string) error
	// GetConfig retuns the current application configuration
	GetConfig(ctx context.Context) models.AppConfig
}

// -- ConfigService implementation -------------------------------------------------------------------------------------

type configService struct {
	configFilename string
	config         *models.AppConfig
	lookuper       envconfig.Lookuper
}

// NewConfigService creates a new configuration service instance with the given default file name
func NewConfigService(configFilename string) ConfigService {
	return &configService{
		configFilename: configFilename,
		lookuper:       envconfig.OsLookuper(),
	}
}

// Load loads the application config from its default file location
func (s *configService) Load(ctx context.Context) error {
	if _, err := os.Stat(s.configFilename); os.IsNotExist(err) {
		ctxhelper.Logger(ctx).WithField(log.FldFile, s.configFilename).Info("No configuration file - using defaults")
		conf, err := models.GetDefaultConfig()
		if err != nil {
			return errors.Wrap(err, "Load: Failed to create default config")
		}
		return s.apply(ctx, conf)
	}
	return s.LoadFromFile(ctx, s.configFilename)
}

// LoadFromFile loads the configuration from the given JSON file and applies the environment overrides
func (s *configService) LoadFromFile(ctx context.Context, filename string) error {
	logger := ctxhelper.Logger(ctx)
	logger.WithField(log.FldFile, filename).Info("Loading configuration file")
	conf, err := models.GetDefaultConfig()
	if err != nil {
		return errors.Wrap(err, "LoadFromFile: Failed to create default config")
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "LoadFromFile: cannot load configuration file")
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&conf); err != nil {
		return errors.Wrap(err, "LoadFromFile: Failed to decode configuration file")
	}
	return s.apply(ctx, conf)
}

// apply overrides the configuration with the values from the environment and makes it the current one
func (s *configService) apply(ctx context.Context, conf *models.AppConfig) error {
	if err := envconfig.ProcessWith(ctx, conf, s.lookuper); err != nil {
		return errors.Wrap(err, "apply: Failed to read configuration from environment")
	}
	s.config = conf
	return nil
}

// Write writes the current application configuration to the default file name
func (s *configService) Write(ctx context.Context) error {
	return s.WriteToFile(ctx, s.configFilename)
}

// WriteToFile writes the current application configuration to a JSON file
func (s *configService) WriteToFile(ctx context.Context, filename string) error {
	logger := ctxhelper.Logger(ctx)
	logger.WithField(log.FldFile, filename).Info("Writing configuration file")
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "WriteToFile: Cannot open configuration file '%s' to write to", filename)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	conf := s.GetConfig(ctx)
	if err := enc.Encode(&conf); err != nil {
		return errors.Wrap(err, "WriteToFile: Failed to serialize configuration data")
	}
	return nil
}

// GetConfig retuns the current application configuration
func (s *configService) GetConfig(ctx context.Context) models.AppConfig {
	var ret models.AppConfig
	if s.config != nil {
		ret = *s.config
	} else {
		if tmp, err := models.GetDefaultConfig(); err == nil {
			ret = *tmp
		}
	}
	return ret
}
