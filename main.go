package main

import (
	"context"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/ztkent/lux-meter/internal/luxmeter"
	"github.com/ztkent/lux-meter/internal/tools"
	"github.com/ztkent/lux-meter/tsl2591"
)

/*
	Entry point for the Lux Meter service.
	It should be running at startup, on a Raspberry Pi, with the TSL2591 sensor connected.
*/

func main() {
	cfg, err := tools.LoadConfig(os.Getenv)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	l, err := tools.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.Fatalf("Failed to open log file: %v", err)
	}
	tsl2591.SetLogger(l)

	pid := os.Getpid()
	l.WithField("pid", pid).Info("LuxMeter starting")

	// connect to the lux sensor
	device, err := tsl2591.Open(cfg.I2CDevice, cfg.Gain, cfg.IntegrationTime)
	if err != nil {
		l.Fatalf("Failed to connect to the TSL2591 sensor: %v", err)
	}
	defer device.Close()

	// connect to the sqlite database
	db, err := tools.ConnectSqlite(cfg.DBPath, l)
	if err != nil {
		l.Fatalf("Failed to connect to the sqlite database: %v", err)
	}
	defer db.Close()

	meter := &luxmeter.LuxMeter{
		TSL2591:        device,
		ResultsDB:      db,
		LuxResultsChan: make(chan luxmeter.LuxResults),
		Log:            l,
		Interval:       cfg.RecordInterval,
		MaxJobDuration: cfg.MaxJobDuration,
		DBPath:         cfg.DBPath,
		Location:       cfg.Location,
		Pid:            pid,
	}

	// Listen for any result messages from our jobs, record them in sqlite
	go meter.MonitorAndRecordResults(context.Background())

	r := luxmeter.NewRouter(meter)
	if cfg.SSL {
		certPath, keyPath := "cert.pem", "key.pem"
		if err := tools.EnsureCertificate(certPath, keyPath); err != nil {
			l.Fatalf("Failed to create a certificate: %v", err)
		}
		l.Infof("Starting HTTPS server on port %s", cfg.Port)
		err = http.ListenAndServeTLS(":"+cfg.Port, certPath, keyPath, r)
	} else {
		l.Infof("Starting HTTP server on port %s", cfg.Port)
		err = http.ListenAndServe(":"+cfg.Port, r)
	}
	if err != nil {
		l.Fatalf("Failed to start server: %v", err)
	}
}
