package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/redis/v3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopmate/sentinel/internal/audit"
	"github.com/shopmate/sentinel/internal/common"
	"github.com/shopmate/sentinel/internal/config"
	"github.com/shopmate/sentinel/internal/handlers/api"
	"github.com/shopmate/sentinel/internal/mail"
	"github.com/shopmate/sentinel/internal/middlewares"
	"github.com/shopmate/sentinel/internal/monitor"
	"github.com/shopmate/sentinel/internal/notify"
	"github.com/shopmate/sentinel/internal/render"
	"github.com/shopmate/sentinel/internal/secrets"
	"github.com/shopmate/sentinel/internal/security"
	"github.com/shopmate/sentinel/internal/store"
	"github.com/shopmate/sentinel/model"
	"github.com/shopmate/sentinel/params"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
	subjectFlag = &cli.StringFlag{
		Name:  "subject",
		Usage: "Subject of the issued admin token",
		Value: "admin",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "sentinel - security telemetry and defense server"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
		{
			Name:  "token",
			Usage: "Issue an admin API access token",
			Flags: []cli.Flag{configFileFlag, subjectFlag},
			Action: func(ctx *cli.Context) error {
				cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
				if err != nil {
					return err
				}
				token, err := middlewares.GenerateAccessToken(cfg.MasterKey, ctx.String(subjectFlag.Name))
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(model.Models...); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	return db
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

func mustInitMailSender(mailCfg config.MailConfig) mail.MailSender {
	if mailCfg.Backend != "smtp" {
		log.Fatalf("Unsupported mail sender backend %s", mailCfg.Backend)
	}
	from := mailCfg.From
	if from == "" {
		from = mailCfg.SMTP.From
	}
	sender, err := mail.NewSMTPMailSender(mail.SMTPConfig{
		Host:               mailCfg.SMTP.Host,
		Port:               mailCfg.SMTP.Port,
		Username:           mailCfg.SMTP.Username,
		Password:           mailCfg.SMTP.Password,
		InsecureSkipVerify: mailCfg.SMTP.InsecureSkipVerify,
		CertFile:           mailCfg.SMTP.CertFile,
		KeyFile:            mailCfg.SMTP.KeyFile,
		CAFile:             mailCfg.SMTP.CAFile,
	}, from)
	if err != nil {
		slog.Error("Failed to initialize SMTP mail sender", "error", err)
		os.Exit(1)
	}
	return sender
}

func mustInitNotifier(cfg *config.Config) monitor.Notifier {
	var notifiers []monitor.Notifier
	if cfg.Mail.Backend != "" && len(cfg.Mail.Recipients) > 0 {
		mailSender := mustInitMailSender(cfg.Mail)
		notifiers = append(notifiers, notify.NewEmailNotifier(mailSender, cfg.Mail.Recipients))
	}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.SigningKey))
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notify.NewMulti(notifiers...)
}

func mustInitAuditSinks(cfg *config.Config, db *gorm.DB) []audit.Sink {
	var sinks []audit.Sink
	if cfg.Audit.Console {
		sinks = append(sinks, audit.NewConsoleSink())
	}
	if cfg.Audit.FilePath != "" {
		fileSink, err := audit.NewFileSink(cfg.Audit.FilePath)
		if err != nil {
			slog.Error("Failed to open audit log file", "path", cfg.Audit.FilePath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, fileSink)
	}
	if cfg.Audit.Database && db != nil {
		sinks = append(sinks, audit.NewDatabaseSink(db))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("Failed to connect to kafka", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, kafkaSink)
	}
	if len(cfg.OpenSearch.Addresses) > 0 {
		osSink, err := audit.NewOpenSearchSink(cfg.OpenSearch.Addresses, cfg.OpenSearch.Index, cfg.OpenSearch.APIKey)
		if err != nil {
			slog.Error("Failed to initialize opensearch sink", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, osSink)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.NewConsoleSink())
	}
	return sinks
}

func mustInitSecretsManager(cfg *config.Config, redisStorage *redis.Storage) *secrets.Manager {
	var backend store.Storage
	if cfg.Secrets.Backend == "redis" && redisStorage != nil {
		backend = store.NewRedisStorage(redisStorage.Conn())
	} else {
		backend = store.NewMemoryStorage()
	}
	manager, err := secrets.NewManager(secrets.Config{
		EncryptionKey:       cfg.MasterKey,
		Environment:         cfg.Secrets.Environment,
		EnableAuditLogging:  cfg.Secrets.EnableAuditLogging,
		EnableRotation:      cfg.Secrets.EnableRotation,
		DefaultRotationDays: cfg.Secrets.DefaultRotationDays,
		MaxSecretVersions:   cfg.Secrets.MaxSecretVersions,
		EnableAccessControl: cfg.Secrets.EnableAccessControl,
	}, backend)
	if err != nil {
		slog.Error("Failed to initialize secrets manager", "error", err)
		os.Exit(1)
	}
	return manager
}

func setupAPIRoutes(
	router fiber.Router,
	cfg *config.Config,
	auditLogger *audit.Logger,
	eventRepo audit.EventRepository,
	securityMonitor *monitor.Monitor,
	secretsManager *secrets.Manager) {

	// handlers
	var (
		monitorHandler = api.NewMonitorHandler(securityMonitor)
		eventsHandler  = api.NewEventsHandler(auditLogger, eventRepo)
		secretsHandler = api.NewSecretsHandler(secretsManager)
	)

	v1 := router.Group("/api/v1")
	if cfg.Secrets.EnableAccessControl {
		v1.Use(middlewares.RequireAccessToken(cfg.MasterKey))
	}

	v1.Get("/monitor", monitorHandler.GetStatus)
	v1.Post("/monitor/start", monitorHandler.PostStart)
	v1.Post("/monitor/stop", monitorHandler.PostStop)
	v1.Get("/alerts", monitorHandler.GetAlerts)
	v1.Post("/alerts/:id/resolve", monitorHandler.PostResolveAlert)
	v1.Get("/rules", monitorHandler.GetRules)
	v1.Post("/rules", monitorHandler.PostRule)
	v1.Delete("/rules/:id", monitorHandler.DeleteRule)
	v1.Get("/blocked-ips", monitorHandler.GetBlockedIPs)
	v1.Post("/blocked-ips", monitorHandler.PostBlockIP)
	v1.Delete("/blocked-ips/:ip", monitorHandler.DeleteBlockedIP)
	v1.Post("/rate-overrides", monitorHandler.PostRateOverride)
	v1.Delete("/rate-overrides/:ip", monitorHandler.DeleteRateOverride)

	v1.Get("/events", eventsHandler.GetEvents)
	v1.Post("/events/flush", eventsHandler.PostFlush)
	v1.Get("/events/stats", eventsHandler.GetStats)

	v1.Get("/secrets", secretsHandler.GetSecrets)
	v1.Post("/secrets", secretsHandler.PostSecret)
	v1.Get("/secrets/rotation-due", secretsHandler.GetRotationDue)
	v1.Get("/secrets/access-log", secretsHandler.GetAccessLog)
	v1.Post("/secrets/generate", secretsHandler.PostGenerate)
	v1.Get("/secrets/:id", secretsHandler.GetSecretMetadata)
	v1.Get("/secrets/:id/value", secretsHandler.GetSecretValue)
	v1.Put("/secrets/:id", secretsHandler.PutSecret)
	v1.Post("/secrets/:id/rotate", secretsHandler.PostRotateSecret)
	v1.Delete("/secrets/:id", secretsHandler.DeleteSecret)
}

// startRotationReminder periodically logs secrets that are due for
// rotation. The subscription ends when ctx is cancelled.
func startRotationReminder(ctx context.Context, manager *secrets.Manager) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, meta := range manager.SecretsNeedingRotation() {
				slog.Warn("Secret is due for rotation", "secret", meta.ID, "name", meta.Name, "strategy", meta.RotationStrategy)
			}
		}
	}
}

// startRetentionPruner deletes persisted security events older than the
// configured retention window, once a day.
func startRetentionPruner(ctx context.Context, repo audit.EventRepository, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			removed, err := repo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				slog.Error("Failed to prune expired security events", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("Pruned expired security events", "removed", removed, "cutoff", cutoff)
			}
		}
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(cfg.Debug || ctx.IsSet(debugFlag.Name))

	if err := render.Initialize(map[string]interface{}{"appName": cfg.AppName}, cfg.TemplateDir); err != nil {
		slog.Error("Failed to initialize templates", "error", err)
		return err
	}

	db := mustInitDatabase(cfg.MySQL)
	var redisStorage *redis.Storage
	if cfg.Redis.URL != "" {
		redisStorage = mustInitRedisStorage(cfg.Redis)
	}

	// services
	var (
		notifier        = mustInitNotifier(cfg)
		securityMonitor = monitor.New(monitor.Config{
			MaxHistoryEvents: cfg.Monitor.MaxHistoryEvents,
			HistoryMaxAge:    cfg.Monitor.HistoryMaxAge,
			DefaultBlockTTL:  cfg.Monitor.DefaultBlockTTL,
		}, notifier)
		auditLogger = audit.NewLogger(audit.Config{
			LogLevel:      security.Severity(strings.ToUpper(cfg.Audit.LogLevel)),
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: cfg.Audit.FlushInterval,
			MaxBuffered:   cfg.Audit.MaxBuffered,
		}, mustInitAuditSinks(cfg, db)...)
		eventRepo      = audit.NewEventRepository(db)
		secretsManager = mustInitSecretsManager(cfg, redisStorage)
	)

	// every logged event flows into the threat monitor; the bridge buffer
	// absorbs bursts and overflow is counted, never blocking the log path
	liveEvents, unsubscribe := auditLogger.Events().Subscribe(params.MonitorFeedBufferSize)
	go func() {
		for event := range liveEvents {
			securityMonitor.ProcessSecurityEvent(event)
		}
	}()
	securityMonitor.Start()

	serverCtx, term := context.WithCancel(ctx.Context)
	defer term()
	if cfg.Secrets.EnableRotation {
		go startRotationReminder(serverCtx, secretsManager)
	}
	if cfg.Audit.Database && cfg.Audit.RetentionDays > 0 {
		go startRetentionPruner(serverCtx, eventRepo, cfg.Audit.RetentionDays)
	}

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(logger.New())
	router.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	router.Use(middlewares.RejectBlockedIPs(securityMonitor))
	router.Use(middlewares.AuditRequests(auditLogger))

	setupAPIRoutes(router, cfg, auditLogger, eventRepo, securityMonitor, secretsManager)

	healthCheckDone := make(chan struct{})
	var rdb goredis.UniversalClient
	if redisStorage != nil {
		rdb = redisStorage.Conn()
	}
	go common.StartHealthCheckServer(serverCtx, healthCheckDone, rdb, db)

	// graceful shutdown: stop accepting requests, then drain the audit
	// buffer and cancel the block timers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down")
		if err := router.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	err = router.Listen(cfg.ListenAddr)

	unsubscribe()
	securityMonitor.Close()
	auditLogger.Close()
	term()
	<-healthCheckDone
	return err
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
