package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Live     LiveConfig
	}

	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// LiveConfig holds the real-time lecture coordinator tunables.
	LiveConfig struct {
		HeartbeatTimeout time.Duration // sessions idle for longer are evicted
		ReapInterval     time.Duration
		ActiveWindow     time.Duration // stats: "active" means a heartbeat within this window
		RoomIdleTTL      time.Duration // empty rooms untouched for longer are retired on next access

		SendBufferSize int
		ReadLimit      int64
		WriteWait      time.Duration
		PongWait       time.Duration
		PingInterval   time.Duration
		MessageRate    float64 // inbound messages per second per connection
		MessageBurst   int

		PersistQueueSize int
		PersistWorkers   int
		PersistTimeout   time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from defaults, the `.env.<env>` file (if any) and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "masomo")
	v.SetDefault("dbUser", "masomo")
	v.SetDefault("dbPassword", "masomo")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("liveHeartbeatTimeout", 10*time.Minute)
	v.SetDefault("liveReapInterval", 5*time.Minute)
	v.SetDefault("liveActiveWindow", 5*time.Minute)
	v.SetDefault("liveRoomIdleTTL", 30*time.Minute)
	v.SetDefault("liveSendBufferSize", 256)
	v.SetDefault("liveReadLimit", 64*1024)
	v.SetDefault("liveWriteWait", 10*time.Second)
	v.SetDefault("livePongWait", 60*time.Second)
	v.SetDefault("livePingInterval", 30*time.Second)
	v.SetDefault("liveMessageRate", 20.0)
	v.SetDefault("liveMessageBurst", 40)
	v.SetDefault("livePersistQueueSize", 1024)
	v.SetDefault("livePersistWorkers", 4)
	v.SetDefault("livePersistTimeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:            v.GetString("serverAddress"),
			Host:               v.GetString("serverHost"),
			DebugHost:          v.GetString("serverDebugHost"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Live: LiveConfig{
			HeartbeatTimeout: v.GetDuration("liveHeartbeatTimeout"),
			ReapInterval:     v.GetDuration("liveReapInterval"),
			ActiveWindow:     v.GetDuration("liveActiveWindow"),
			RoomIdleTTL:      v.GetDuration("liveRoomIdleTTL"),
			SendBufferSize:   v.GetInt("liveSendBufferSize"),
			ReadLimit:        v.GetInt64("liveReadLimit"),
			WriteWait:        v.GetDuration("liveWriteWait"),
			PongWait:         v.GetDuration("livePongWait"),
			PingInterval:     v.GetDuration("livePingInterval"),
			MessageRate:      v.GetFloat64("liveMessageRate"),
			MessageBurst:     v.GetInt("liveMessageBurst"),
			PersistQueueSize: v.GetInt("livePersistQueueSize"),
			PersistWorkers:   v.GetInt("livePersistWorkers"),
			PersistTimeout:   v.GetDuration("livePersistTimeout"),
		},
	}
}
