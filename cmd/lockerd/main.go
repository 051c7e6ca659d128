// lockerd drives a bank of Winnsen lock control boards over a shared RS-485
// bus and exposes them to the kiosk over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/parcelpoint/lockerd/internal/api"
	"github.com/parcelpoint/lockerd/internal/config"
	"github.com/parcelpoint/lockerd/internal/db"
	"github.com/parcelpoint/lockerd/internal/locker"
	"github.com/parcelpoint/lockerd/internal/security"
	"github.com/parcelpoint/lockerd/internal/serialport"
	"github.com/parcelpoint/lockerd/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	portPath   = flag.String("port", "", "Serial port path (overrides the enabled DB config)")
	baudRate   = flag.Int("baud", 9600, "Serial baud rate")
	station    = flag.Int("station", -1, "Board station address 0-3 (overrides the tuning file)")
	simMode    = flag.Bool("sim", false, "Run against a simulated lock board instead of real hardware")
	dbFile     = flag.String("db", "lockerd.db", "Path to the sqlite database")
	configPath = flag.String("config", config.DefaultConfigPath, "Path to the tuning JSON file")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

const migrationsDir = "migrations"

// resolvePortOptions picks the serial port settings. Flags win over the
// enabled DB config; the DB config exists so field techs can repoint the bus
// without shell access.
func resolvePortOptions(database *db.DB) (serialport.PortOptions, error) {
	if *portPath != "" {
		return serialport.PortOptions{Path: *portPath, BaudRate: *baudRate}, nil
	}
	c, err := database.GetEnabledSerialConfig()
	if err != nil {
		return serialport.PortOptions{}, fmt.Errorf("no -port flag and no enabled serial config: %w", err)
	}
	return serialport.PortOptions{
		Path:     c.PortPath,
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		Parity:   c.Parity,
	}, nil
}

// busLabel names the bus for startup logging, since simulation mode has no
// port path.
func busLabel(sim bool, opts serialport.PortOptions) string {
	if sim {
		return "simulated bus"
	}
	return opts.Path
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("lockerd %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// migrate subcommand manages the schema and exits
	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbFile, migrationsDir)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// flag-supplied paths are confined to the working and temp dirs
	if err := security.ValidateLocalPath(*configPath); err != nil {
		log.Fatalf("invalid -config path: %v", err)
	}
	if err := security.ValidateLocalPath(*dbFile); err != nil {
		log.Fatalf("invalid -db path: %v", err)
	}

	tuning, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	if *station >= 0 {
		tuning.Station = station
	}
	if err := tuning.Validate(); err != nil {
		log.Fatalf("invalid tuning config: %v", err)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	var transport serialport.Transport
	var opts serialport.PortOptions
	if *simMode {
		transport = serialport.NewSimulator()
		log.Print("running in simulation mode, no hardware attached")
	} else {
		transport = serialport.NewPort()
		opts, err = resolvePortOptions(database)
		if err != nil {
			log.Fatalf("failed to resolve serial port: %v", err)
		}
	}

	controller := locker.NewController(transport, tuning)
	if err := controller.Connect(opts); err != nil {
		log.Fatalf("failed to open locker bus: %v", err)
	}
	defer controller.Disconnect()

	if controller.TestCommunication() {
		log.Printf("locker board at station %d responding on %s", controller.Station(), busLabel(*simMode, opts))
	} else {
		// keep running so the API can surface diagnostics and retry later
		log.Printf("warning: locker board at station %d not responding", controller.Station())
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := api.NewServer(controller, database)
		mux := srv.ServeMux()
		srv.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach db admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
