package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/molty-assistant/second-brain/api"
	"github.com/molty-assistant/second-brain/storage"
	"github.com/molty-assistant/second-brain/taskdb"
)

func main() {
	_ = godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tables := storage.Tables{
		Backlog:       os.Getenv("BACKLOG_TABLE"),
		Schedules:     os.Getenv("SCHEDULES_TABLE"),
		WorkOrders:    os.Getenv("WORKORDERS_TABLE"),
		Activities:    os.Getenv("ACTIVITIES_TABLE"),
		ActivityQueue: os.Getenv("ACTIVITY_QUEUE"),
	}
	if connStr == "" || tables.Backlog == "" || tables.Schedules == "" || tables.WorkOrders == "" || tables.Activities == "" {
		log.Fatal("missing storage config")
	}
	docs, err := storage.New(connStr, tables)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	backlogPath := os.Getenv("BACKLOG_JSON_PATH")
	if backlogPath == "" {
		log.Fatal("missing BACKLOG_JSON_PATH")
	}

	dataDir := os.Getenv("TASKS_DATA_DIR")
	if dataDir == "" {
		log.Fatal("missing TASKS_DATA_DIR")
	}
	legacyDir := os.Getenv("LEGACY_NOTES_DIR")

	logger := log.New()
	fileStore := taskdb.New(dataDir, legacyDir, logger)

	var tasks api.TaskStore = fileStore
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		ttl := 30 * time.Second
		if v := os.Getenv("TASKS_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid TASKS_CACHE_TTL: %v", err)
			}
			ttl = d
		}
		tasks = taskdb.NewCache(fileStore, redis.NewClient(redisOptions(redisConn)), ttl)
	}

	var auth *api.Auth
	if os.Getenv("LOCAL_AUTH_MODE") != "" {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domain := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domain+"/")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.DecompressRequests())

	api.Register(e, docs, tasks, auth, api.Config{BacklogPath: backlogPath}, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// redisOptions accepts either a redis URL or the Azure-style
// "host:port,password=...,ssl=true" connection string.
func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
