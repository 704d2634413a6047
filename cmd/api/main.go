package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"posvenda.org/internal/auth"
	"posvenda.org/internal/crm"
	"posvenda.org/internal/dashboard"
	"posvenda.org/internal/httpapi"
	"posvenda.org/internal/obs"
	"posvenda.org/internal/stream"
	"posvenda.org/internal/whatsapp"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("POSVENDA_AUTH_SECRET")
	if secret == "" {
		log.Fatal("POSVENDA_AUTH_SECRET is required")
	}
	dsn := os.Getenv("POSVENDA_PG_DSN")
	if dsn == "" {
		log.Fatal("POSVENDA_PG_DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	issuer, err := auth.NewIssuer(secret)
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}

	crmStore := crm.NewPGStore(db)

	api := httpapi.New(httpapi.Config{
		Auth:      auth.NewService(auth.NewPGStore(db), issuer),
		Issuer:    issuer,
		CRM:       crm.NewService(crmStore),
		Dashboard: dashboard.NewService(crmStore.Metrics()),
		WhatsApp: whatsapp.NewClient(
			os.Getenv("POSVENDA_WA_URL"),
			os.Getenv("POSVENDA_WA_KEY"),
			os.Getenv("POSVENDA_WA_INSTANCE"),
		),
		Stream:      stream.New(),
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		Version:     version,
		CORSOrigins: splitOrigins(os.Getenv("POSVENDA_CORS_ORIGINS")),
	})

	addr := os.Getenv("POSVENDA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE clients hold connections open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting posvenda-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
