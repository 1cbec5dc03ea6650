// Smart Home Core
//
// This is the main entry point for the smart home backend. It serves the
// mobile app's REST API, validates sensor readings and actuator commands
// against the device catalogue, raises gas alerts and relays face
// recognition events.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smarthome-app/smarthome-core/internal/api"
	"github.com/smarthome-app/smarthome-core/internal/auth"
	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/faceid"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/config"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/database"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/influxdb"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/logging"
	"github.com/smarthome-app/smarthome-core/internal/infrastructure/mqtt"
	"github.com/smarthome-app/smarthome-core/internal/ingest"
	"github.com/smarthome-app/smarthome-core/internal/notification"
	"github.com/smarthome-app/smarthome-core/internal/store"
	"github.com/smarthome-app/smarthome-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting smart home core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // flushes the log file on shutdown
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	health := map[string]api.HealthChecker{"database": db}

	stateStore, closeStore, err := openStore(cfg, db, health)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("state store ready", "backend", cfg.Store.Backend)

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		health["mqtt"] = mqttClient
	}
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)

	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		health["influxdb"] = influxClient
	}

	// Alerts and face events are stored, then fanned out over MQTT when it is up.
	notifications := notification.NewSQLiteRepository(db.DB)
	var alertPublisher notification.Publisher
	if mqttClient != nil {
		alertPublisher = mqttClient
	}
	dispatcher := notification.NewDispatcher(notifications, alertPublisher, topics.Alert, byte(cfg.MQTT.QoS)) //nolint:gosec // G115: qos validated to 0-2
	dispatcher.SetLogger(log)

	var sensorObservers, commandObservers []control.Observer
	if influxClient != nil {
		mirror := control.TelemetryMirror{Writer: influxClient}
		sensorObservers = append(sensorObservers, mirror)
		commandObservers = append(commandObservers, mirror)
	}
	if mqttClient != nil {
		sensorObservers = append(sensorObservers, control.StatePublisher{Publisher: mqttClient, Topic: topics.SensorState, Logger: log})
		commandObservers = append(commandObservers, control.StatePublisher{Publisher: mqttClient, Topic: topics.CommandState, Logger: log})
	}

	sensors, err := control.NewService(control.Deps{
		Registry:   device.SensorRegistry(),
		Store:      stateStore,
		Sink:       dispatcher,
		Logger:     log.With("direction", device.DirectionSensor),
		Observers:  sensorObservers,
		MaxHistory: cfg.Store.HistoryMaxLimit,
	})
	if err != nil {
		return fmt.Errorf("creating sensor service: %w", err)
	}
	commands, err := control.NewService(control.Deps{
		Registry:   device.CommandRegistry(),
		Store:      stateStore,
		Logger:     log.With("direction", device.DirectionCommand),
		Observers:  commandObservers,
		MaxHistory: cfg.Store.HistoryMaxLimit,
	})
	if err != nil {
		return fmt.Errorf("creating command service: %w", err)
	}
	log.Info("device catalogue loaded",
		"sensor_types", len(sensors.Registry().Types()),
		"command_types", len(commands.Registry().Types()),
	)

	if mqttClient != nil && cfg.MQTT.Ingest {
		ingestor := ingest.New(sensors, topics)
		if ingestErr := ingestor.Start(mqttClient, byte(cfg.MQTT.QoS)); ingestErr != nil { //nolint:gosec // G115: qos validated to 0-2
			return fmt.Errorf("starting sensor ingest: %w", ingestErr)
		}
		log.Info("sensor ingest subscribed", "topic", topics.AllSensorIngest())
	}

	faces := faceid.NewRelay(sensors, dispatcher, cfg.FaceRecognition.DeviceRooms)
	faces.SetLogger(log)
	var classifier faceid.Classifier
	if cfg.FaceRecognition.ClassifierURL != "" {
		classifier = faceid.NewRemoteClassifier(cfg.FaceRecognition)
		log.Info("face classifier configured", "url", cfg.FaceRecognition.ClassifierURL)
	}

	users := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, users, cfg.Security.Admin, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}
	authenticator := auth.NewAuthenticator(users, cfg.Security.JWT.Secret, time.Duration(cfg.Security.JWT.AccessTokenTTL)*time.Minute)

	server, err := api.New(api.Deps{
		Config:        cfg.API,
		Security:      cfg.Security,
		Logger:        log,
		Sensors:       sensors,
		Commands:      commands,
		Notifications: notifications,
		Faces:         faces,
		Classifier:    classifier,
		Auth:          authenticator,
		Health:        health,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("smart home core stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("SMARTHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openStore builds the configured state store. The returned close function
// is always safe to call.
func openStore(cfg *config.Config, db *database.DB, health map[string]api.HealthChecker) (store.StateStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		client := store.NewRedisClient(cfg.Redis)
		redisStore := store.NewRedisStore(client, cfg.Redis.KeyPrefix)
		health["redis"] = redisStore
		return redisStore, func() { _ = client.Close() }, nil
	case config.StoreBackendMemory:
		return store.NewMemoryStore(), func() {}, nil
	case config.StoreBackendSQLite:
		return store.NewSQLiteStore(db.DB), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// connectMQTT returns nil when MQTT is disabled.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB returns nil when InfluxDB is disabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
