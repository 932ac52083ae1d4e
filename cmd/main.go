package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"google.golang.org/api/option"

	"roadassist/internal/config"
	"roadassist/internal/rescue"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	cfg := config.LoadConfig()

	port := os.Getenv("PORT")
	if port == "" {
		port = ":4001"
	} else {
		port = ":" + port
	}

	addr := flag.String("addr", port, "HTTP network address")
	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	db, err := openDB(cfg.Database.URL)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	fcm := openFCM(cfg, infoLog, errorLog)

	rescueCfg, err := rescue.LoadRescueConfig()
	if err != nil {
		errorLog.Fatal(err)
	}
	rescueDeps := &rescue.RescueDeps{
		DB:     db,
		RDB:    rdb,
		FCM:    fcm,
		Logger: moduleLogger{info: infoLog, err: errorLog},
		Config: rescueCfg,
	}

	app := initializeApp(db, rescueDeps, cfg, errorLog, infoLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rescue.StartRescueWorkers(ctx, rescueDeps); err != nil {
		errorLog.Fatal(err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Refresh-Token"},
	})

	srv := &http.Server{
		Addr:         *addr,
		ErrorLog:     errorLog,
		Handler:      addSecurityHeaders(c.Handler(app.routes())),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	infoLog.Printf("Starting server on %s", *addr)
	if err := srv.ListenAndServe(); err != nil {
		errorLog.Fatal(err)
	}
}

// openFCM initializes the Firebase messaging client. Push delivery is
// optional: without credentials the module falls back to WebSocket only.
func openFCM(cfg config.Config, infoLog, errorLog *log.Logger) *messaging.Client {
	if cfg.Firebase.CredentialsFile == "" {
		infoLog.Println("Firebase credentials not configured, push notifications disabled")
		return nil
	}
	app, err := firebase.NewApp(context.Background(), nil, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		errorLog.Printf("Failed to initialize Firebase app: %v", err)
		return nil
	}
	fcm, err := app.Messaging(context.Background())
	if err != nil {
		errorLog.Printf("Failed to initialize FCM client: %v", err)
		return nil
	}
	return fcm
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	if err = db.Ping(); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		return nil, err
	}
	db.SetMaxIdleConns(35)
	log.Println("Successfully connected to database")
	return db, nil
}

// moduleLogger adapts the stdlib logger pair to the rescue module's interface.
type moduleLogger struct {
	info *log.Logger
	err  *log.Logger
}

func (l moduleLogger) Infof(format string, args ...interface{}) { l.info.Printf(format, args...) }

func (l moduleLogger) Errorf(format string, args ...interface{}) { l.err.Printf(format, args...) }
