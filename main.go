package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	devcamper "github.com/derWhity/devcamper/internal"
	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/filestore"
	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/mailer"
	"github.com/derWhity/devcamper/internal/migrate"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/policy"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/ratelimit"
	"github.com/derWhity/devcamper/internal/repos"
	bootcampmongo "github.com/derWhity/devcamper/internal/repos/bootcamp/mongodb"
	bootcampsql "github.com/derWhity/devcamper/internal/repos/bootcamp/sqlite"
	coursemongo "github.com/derWhity/devcamper/internal/repos/course/mongodb"
	coursesql "github.com/derWhity/devcamper/internal/repos/course/sqlite"
	"github.com/derWhity/devcamper/internal/repos/mongoquery"
	reviewmongo "github.com/derWhity/devcamper/internal/repos/review/mongodb"
	reviewsql "github.com/derWhity/devcamper/internal/repos/review/sqlite"
	sessionrepo "github.com/derWhity/devcamper/internal/repos/session/inmem"
	"github.com/derWhity/devcamper/internal/repos/sqlquery"
	usermongo "github.com/derWhity/devcamper/internal/repos/user/mongodb"
	usersql "github.com/derWhity/devcamper/internal/repos/user/sqlite"
	"github.com/derWhity/devcamper/internal/seeder"
	"github.com/derWhity/devcamper/internal/token"
	"github.com/kardianos/osext"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

const (
	appName    = "DevCamper"
	appVersion = "1.0.0"
	// Directory next to the executable holding the static frontend files
	publicDir = "public"
)

// Checks and tries to create the given directory recursively (or panics if this fails)
func checkAndCreateDir(path string, logger *logrus.Entry) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if e, ok := err.(*os.PathError); ok && e.Err == syscall.ENOENT {
			logger.WithField(log.FldPath, path).Info("Directory does not exist - trying to create...")
			if err = os.MkdirAll(path, os.ModePerm); err != nil {
				logger.WithError(err).Fatal("Failed to create directory")
			}
			logger.Info("Directory created successfully")
		} else {
			logger.WithError(err).Fatal("Stat has failed")
		}
	} else {
		if !fileInfo.IsDir() {
			logger.Fatalf("'%s' is not a directory. Remove the plain file if you want to continue", path)
		}
	}
}

// configureLogging applies the log level and format from the configuration
func configureLogging(conf models.LogConfig, logger *logrus.Entry) {
	if lvl, err := logrus.ParseLevel(conf.Level); err == nil {
		logrus.SetLevel(lvl)
	} else {
		logger.WithError(err).Warn("Invalid log level - using 'info'")
	}
	if strings.ToLower(conf.Format) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// loadConfig loads the configuration file and prepares the logger for the command
func loadConfig(ctx context.Context, configFile string) (context.Context, *models.AppConfig, *logrus.Entry) {
	logger := logrus.WithField(log.FldVersion, appVersion)
	ctx = ctxhelper.WithLogger(ctx, logger)

	cs := devcamper.NewConfigService(configFile)
	if err := cs.Load(ctx); err != nil {
		logger.WithError(err).Error("Cannot load config. Using defaults")
	}
	conf := cs.GetConfig(ctx)
	configureLogging(conf.Log, logger)
	return ctx, &conf, logger
}

// -- Storage ----------------------------------------------------------------------------------------------------------

// The repositories of the selected storage driver
type storage struct {
	users     repos.UserRepo
	bootcamps repos.BootcampRepo
	courses   repos.CourseRepo
	reviews   repos.ReviewRepo
	close     func()
}

// openStorage connects to the configured storage backend and prepares its schema
func openStorage(ctx context.Context, conf *models.AppConfig, logger *logrus.Entry) (*storage, error) {
	timeout := conf.Storage.QueryTimeout()
	logger = logger.WithField(log.FldDriver, conf.Storage.Driver)

	switch conf.Storage.Driver {
	case models.StorageMongo:
		logger.Info("Connecting to MongoDB...")
		client, err := mongoquery.Connect(ctx, conf.Storage.MongoURI, timeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(conf.Storage.MongoDatabase)
		if err := mongoquery.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &storage{
			users:     usermongo.New(db, timeout, logger),
			bootcamps: bootcampmongo.New(db, timeout, logger),
			courses:   coursemongo.New(db, timeout, logger),
			reviews:   reviewmongo.New(db, timeout, logger),
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case models.StorageSQLite, "":
		logger.Infof("Using '%s' as data directory", conf.DataDir)
		checkAndCreateDir(conf.DataDir, logger)
		dbFileName := path.Join(conf.DataDir, conf.Storage.SQLiteFile)
		db, err := sqlquery.Open(dbFileName)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to open database connection")
		}
		logger.Info("Performing database migrations...")
		if err = migrate.ExecuteMigrationsOnDb(db, logger); err != nil {
			db.Close()
			return nil, errors.Wrap(
				err,
				"Database migration has failed. Please check database for consistency and try again.",
			)
		}
		return &storage{
			users:     usersql.New(db, timeout, logger),
			bootcamps: bootcampsql.New(db, timeout, logger),
			courses:   coursesql.New(db, timeout, logger),
			reviews:   reviewsql.New(db, timeout, logger),
			close:     func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver '%s'", conf.Storage.Driver)
}

// openFileStore returns the object storage if one is configured and the upload directory otherwise
func openFileStore(ctx context.Context, conf *models.AppConfig) (filestore.Store, error) {
	mc := conf.Uploads.Minio
	if mc.Endpoint != "" {
		return filestore.NewMinioStore(ctx, filestore.MinioConfig{
			Endpoint:  mc.Endpoint,
			AccessKey: mc.AccessKey,
			SecretKey: mc.SecretKey,
			Bucket:    mc.Bucket,
			UseSSL:    mc.UseSSL,
		})
	}
	dir := conf.Uploads.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.DataDir, dir)
	}
	return filestore.NewLocalStore(dir)
}

// -- Commands ---------------------------------------------------------------------------------------------------------

func serve(configFile string) error {
	execDir, err := osext.ExecutableFolder()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, conf, logger := loadConfig(ctx, configFile)
	logger.Infof("%s version %s is starting up...", appName, appVersion)

	store, err := openStorage(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer store.close()

	geo, err := geocoder.New(conf.Geocoder)
	if err != nil {
		return err
	}
	queryOpts := conf.Query
	queryOpts.EarthRadius = conf.Geo.EarthRadius
	translator := query.NewTranslator(geo, queryOpts)

	enforcer, err := policy.New()
	if err != nil {
		return errors.Wrap(err, "Failed to load the access policy")
	}
	photos, err := openFileStore(ctx, conf)
	if err != nil {
		return errors.Wrap(err, "Failed to open the upload storage")
	}
	metrics, err := devcamper.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return errors.Wrap(err, "Failed to register metrics")
	}

	seed := seeder.New(store.users, store.bootcamps, store.courses, store.reviews, geo, logger)
	admin := conf.DefaultAdmin
	if admin.Email != "" {
		if err := seed.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password); err != nil {
			return err
		}
	}

	issuer := token.NewIssuer(conf.Auth.JWTSecret, conf.Auth.TokenLifetime())
	mail := mailer.New(mailer.Config{
		Host:     conf.Mail.SMTPHost,
		Port:     conf.Mail.SMTPPort,
		User:     conf.Mail.User,
		Password: conf.Mail.Password,
		FromName: conf.Mail.FromName,
		From:     conf.Mail.From,
	}, logger.WithField(log.FldTransport, "SMTP"))

	services := devcamper.Services{
		Bootcamps: devcamper.NewBootcampService(
			store.bootcamps,
			store.courses,
			geo,
			enforcer,
			photos,
			conf.Uploads.MaxFileSize,
			logger,
		),
		Courses: devcamper.NewCourseService(store.courses, store.bootcamps, enforcer, logger),
		Reviews: devcamper.NewReviewService(store.reviews, store.bootcamps, store.users, enforcer, logger),
		Users:   devcamper.NewUserService(store.users, logger),
		Auth: devcamper.NewAuthService(
			store.users,
			sessionrepo.New(ctx),
			issuer,
			mail,
			conf.PublicURL,
			logger,
		),
	}

	limiter := ratelimit.New(conf.RateLimit.Requests, conf.RateLimit.Window())
	if err := limiter.TrustProxies(conf.RateLimit.TrustedProxies); err != nil {
		logger.WithError(err).Fatal("Illegal trusted proxy configuration")
	}
	if limiter != nil {
		go func() {
			ticker := time.NewTicker(conf.RateLimit.Window())
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					limiter.Cleanup()
				}
			}
		}()
	}

	staticDir := filepath.Join(execDir, publicDir)
	if fi, err := os.Stat(staticDir); err != nil || !fi.IsDir() {
		staticDir = ""
	}

	httpLogger := logger.WithField(log.FldTransport, "HTTP")

	h := devcamper.MakeHTTPHandler(services, devcamper.HTTPOptions{
		Translator:    translator,
		Policy:        enforcer,
		Uploads:       photos,
		Limiter:       limiter,
		Metrics:       metrics,
		CookieMaxAge:  time.Duration(conf.Auth.CookieExpireDays) * 24 * time.Hour,
		SecureCookies: conf.Production(),
		MaxUploadSize: conf.Uploads.MaxFileSize,
		StaticDir:     staticDir,
	}, httpLogger)

	// Start listening
	errs := make(chan error)

	// Listen for stop signals that will end the service
	go func() {
		c := make(chan os.Signal, 2)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		err := fmt.Errorf("%s", <-c)
		logger.Info("Caught signal to stop. Shutting down.")
		errs <- err
	}()

	go func() {
		httpLogger.WithField("addr", conf.ListenAddress).Info("Starting listening port")
		errs <- http.ListenAndServe(conf.ListenAddress, h)
	}()

	// Watchdog for systemd
	go func() {
		interval, err := daemon.SdWatchdogEnabled(false)
		if err != nil || interval == 0 {
			return
		}
		_, port, err := net.SplitHostPort(conf.ListenAddress)
		if err != nil {
			logger.WithError(err).Error("Cannot determine the port for the systemd watchdog")
			return
		}
		logger.Info("Activating systemd watchdog goroutine")
		url := fmt.Sprintf("http://127.0.0.1:%s/alive", port)
		for {
			if res, err := http.Get(url); err == nil {
				res.Body.Close()
				daemon.SdNotify(false, "WATCHDOG=1")
			}
			time.Sleep(interval / 3)
		}
	}()

	// Notify systemd that we are ready to go (if available)
	daemon.SdNotify(false, "READY=1")

	logger.WithError(<-errs).Error("Shutdown complete")
	return nil
}

// withSeeder runs fn with a seeder working on the configured storage
func withSeeder(configFile string, fn func(context.Context, *seeder.Seeder) error) error {
	ctx, conf, logger := loadConfig(context.Background(), configFile)
	store, err := openStorage(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer store.close()
	geo, err := geocoder.New(conf.Geocoder)
	if err != nil {
		return err
	}
	return fn(ctx, seeder.New(store.users, store.bootcamps, store.courses, store.reviews, geo, logger))
}

func main() {
	execDir, err := osext.ExecutableFolder()
	if err != nil {
		panic(err)
	}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "devcamper",
		Short:         "The DevCamper bootcamp directory API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		filepath.Join(execDir, "config.json"),
		"The configuration file to load the application's configuration from",
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configFile)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Manage the fixture data in the storage",
	}
	seedCmd.AddCommand(&cobra.Command{
		Use:   "import <dir>",
		Short: "Import the fixture files found in the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSeeder(configFile, func(ctx context.Context, s *seeder.Seeder) error {
				return s.Import(ctx, args[0])
			})
		},
	})
	seedCmd.AddCommand(&cobra.Command{
		Use:   "destroy",
		Short: "Remove all data from the storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSeeder(configFile, func(ctx context.Context, s *seeder.Seeder) error {
				return s.Destroy(ctx)
			})
		},
	})

	rootCmd.AddCommand(serveCmd, seedCmd)
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}
