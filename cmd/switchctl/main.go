// Command switchctl is a demonstration operator tool: it wires one
// switcher.Client and the configured ptz.Client instances from a YAML
// configuration file, logs domain events, and optionally exposes
// Prometheus metrics.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/broadcastkit/corectl/internal/config"
	"github.com/broadcastkit/corectl/ptz"
	"github.com/broadcastkit/corectl/switcher"
)

var CmdLog = logrus.NewEntry(logrus.StandardLogger())

var (
	configFlag   = flag.StringP("config", "c", "", "Path to the YAML `file` describing the switcher and cameras.")
	listenFlag   = flag.StringP("listen", "l", "", "Optional `address` to serve Prometheus metrics on, e.g. :9910.")
	traceFlag    = flag.Bool("trace", false, "Log every switcher wire packet sent and received.")
	audioMinFlag = flag.Float64("audio-min-db", -96, "Floor `dB` for a zero-magnitude audio sample; overrides audio_level_limits_db.min from the config file.")
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s -config switcher.yaml\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *traceFlag {
		logrus.SetLevel(logrus.TraceLevel)
	}

	if *configFlag == "" {
		CmdLog.Fatal("missing -config")
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		CmdLog.Fatal(err)
	}

	reg := prometheus.NewRegistry()

	sw := startSwitcher(cfg, reg)
	defer sw.Close()

	cams := startCameras(cfg, reg)
	defer func() {
		for _, c := range cams {
			c.Close()
		}
	}()

	if *listenFlag != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			CmdLog.WithField("addr", *listenFlag).Info("serving metrics")
			if err := http.ListenAndServe(*listenFlag, mux); err != nil {
				CmdLog.WithError(err).Error("metrics listener exited")
			}
		}()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	CmdLog.WithField("signal", sig).Info("shutting down")
}

func startSwitcher(cfg config.Config, reg prometheus.Registerer) *switcher.Client {
	metrics := switcher.NewMetrics("switchctl", nil)
	if err := metrics.Register(reg); err != nil {
		CmdLog.WithError(err).Warn("switcher metrics registration failed")
	}

	// the configured limit drives the decibel floor; the flag wins
	// when given explicitly
	audioMin := cfg.AudioLevelLimitsDB.Min
	if audioMin == 0 || flag.CommandLine.Changed("audio-min-db") {
		audioMin = *audioMinFlag
	}

	log := CmdLog.WithField("component", "switcher")
	sw := switcher.NewClient(switcher.Config{
		AudioMinDB: audioMin,
		Log:        log,
		Metrics:    metrics,
	})

	sw.Events().OnConnectionStatus(func(connected bool) {
		log.WithField("connected", connected).Info("connection status")
	})
	sw.Events().OnProgramChange(func(index int) {
		log.WithField("index", index).Info("program changed")
	})
	sw.Events().OnPreviewChange(func(index int) {
		log.WithField("index", index).Info("preview changed")
	})
	sw.Events().OnAudioLevels(func(leftDB, rightDB float64) {
		log.WithFields(logrus.Fields{"left_db": leftDB, "right_db": rightDB}).Trace("audio levels")
	})

	if err := sw.Initialize(cfg.SwitcherIP); err != nil {
		CmdLog.WithError(err).Fatal("failed to initialize switcher client")
	}
	return sw
}

func startCameras(cfg config.Config, reg prometheus.Registerer) []*ptz.Client {
	clients := make([]*ptz.Client, 0, len(cfg.PTZCameras))
	for _, cam := range cfg.PTZCameras {
		cam := cam
		name := cam.DisplayName
		if name == "" {
			name = xid.New().String()
		}
		log := CmdLog.WithFields(logrus.Fields{"component": "ptz", "camera": name})

		metrics := ptz.NewMetrics("switchctl", prometheus.Labels{"camera": name})
		if err := metrics.Register(reg); err != nil {
			log.WithError(err).Warn("ptz metrics registration failed")
		}

		addr := fmt.Sprintf("%s:%d", cam.IP, cam.Port)
		client := ptz.NewClient(addr, log, metrics)
		client.OnConnectionStatus(func(connected bool) {
			log.WithField("connected", connected).Info("connection status")
		})
		client.Start()
		clients = append(clients, client)
	}
	return clients
}
