// Command sensor-pipeline samples temperature and tilt, drives the alarm and
// servo outputs, shows readings on a character display and publishes alarm
// and key events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/config"
	"github.com/sweeney/sensor-pipeline/internal/derive"
	"github.com/sweeney/sensor-pipeline/internal/mqtt"
	"github.com/sweeney/sensor-pipeline/internal/pipeline"
	"github.com/sweeney/sensor-pipeline/internal/status"
	"github.com/sweeney/sensor-pipeline/internal/web"
)

// options are the command-line settings that override the config file.
type options struct {
	configPath string
	simulate   bool
	printState bool
	broker     string
	httpAddr   string
	heartbeat  time.Duration
	logLevel   string

	set map[string]bool // flags given explicitly
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "/etc/sensor-pipeline.yaml", "Path to YAML config (missing file uses defaults)")
	flag.BoolVar(&o.simulate, "simulate", false, "Run on simulated sensors and an emulated display")
	flag.BoolVar(&o.printState, "print-state", false, "Print one sensor reading and exit")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flag.Parse()

	o.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies explicit flag overrides.
func loadConfig(o options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.set["simulate"] {
		cfg.Simulate = o.simulate
	}
	if o.set["broker"] {
		cfg.MQTT.Broker = o.broker
	}
	if o.set["http"] {
		cfg.HTTP.Addr = o.httpAddr
	}
	if o.set["heartbeat"] {
		cfg.MQTT.Heartbeat = o.heartbeat
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func temperatureParams(t config.TemperatureConfig) derive.TemperatureParams {
	return derive.TemperatureParams{
		VRef:             t.VRef,
		FullScale:        t.FullScale,
		SlopeMV:          t.SlopeMV,
		ReferenceCelsius: t.ReferenceCelsius,
	}
}

func run(o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	log, logCloser, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	var b *board
	if cfg.Simulate {
		b = openSimulated(cfg, log)
	} else {
		b, err = openHardware(cfg, log)
		if err != nil {
			return fmt.Errorf("init hardware: %w", err)
		}
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("hardware: close", "err", err)
		}
	}()

	if o.printState {
		r, err := pipeline.Sample(b.hw.Sensor, temperatureParams(cfg.Temperature), cfg.Sensor.ReferenceTimeout)
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		fmt.Println(r)
		return nil
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Discard{}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.BufferSize, log)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = pub
	} else {
		log.Info("mqtt: no broker configured, events are not published")
	}
	defer publisher.Close()

	// Tracker first so the STARTUP event carries a snapshot.
	tracker := status.NewTracker(time.Now(), status.Config{
		SampleIntervalMs: cfg.Sensor.SampleInterval.Milliseconds(),
		FilterDepth:      cfg.Filter.TemperatureDepth,
		TiltFilterDepth:  cfg.Filter.TiltDepth,
		ThresholdC:       cfg.Alarm.Threshold,
		HeartbeatMs:      cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTP.Addr,
		Simulated:        cfg.Simulate,
	})

	p, err := pipeline.New(b.hw, pipeline.Options{
		FilterDepth:     cfg.Filter.TemperatureDepth,
		TiltDepth:       cfg.Filter.TiltDepth,
		Temperature:     temperatureParams(cfg.Temperature),
		Threshold:       cfg.Alarm.Threshold,
		Hysteresis:      cfg.Alarm.Hysteresis,
		MinAngle:        cfg.Motor.MinAngle,
		MaxAngle:        cfg.Motor.MaxAngle,
		MinPosition:     cfg.Motor.MinPulseUs,
		MaxPosition:     cfg.Motor.MaxPulseUs,
		RefreshInterval: cfg.Display.RefreshInterval,
		Publisher:       publisher,
		Tracker:         tracker,
	}, log)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	tracker.SetMQTTConnected(publisher.IsConnected())
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("mqtt: startup event", "err", err)
	}

	if cfg.HTTP.Addr != "" {
		var webOpts []web.Option
		if screen := b.screenText(); screen != nil {
			webOpts = append(webOpts, web.WithScreen(screen))
		}
		srv := web.New(cfg.HTTP.Addr, tracker, webOpts...)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http: server", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http: status server listening", "addr", cfg.HTTP.Addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tasks := startBackground(func() error { return p.Run(ctx) })

	log.Info("started",
		"simulate", cfg.Simulate,
		"sample_interval", cfg.Sensor.SampleInterval,
		"threshold_c", cfg.Alarm.Threshold,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.MQTT.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.MQTT.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	loopErr := runLoop(publisher, publisher, tracker, p.Coalesced, time.Now, heartbeat, sigCh, tasks.done, log)
	cancel()
	if loopErr != nil {
		return loopErr
	}
	// Wait for the tasks to stop and the sources to be disarmed.
	if err := tasks.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// background runs a function in its own goroutine. Its result is delivered
// once on done for a select loop, and Wait returns it however many times it
// is asked, whether or not done was read.
type background struct {
	done    chan error
	stopped chan struct{}
	err     error
}

func startBackground(fn func() error) *background {
	b := &background{
		done:    make(chan error, 1),
		stopped: make(chan struct{}),
	}
	go func() {
		b.err = fn()
		b.done <- b.err
		close(b.stopped)
	}()
	return b
}

// Wait blocks until the function has returned and reports its error.
func (b *background) Wait() error {
	<-b.stopped
	return b.err
}

// runLoop services heartbeats until a signal arrives or the pipeline stops.
// A pipeline failure is returned after a SHUTDOWN event is published; a
// signal returns nil and leaves the pipeline for the caller to stop.
func runLoop(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, coalesced func() uint64, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal, done <-chan error, log *slog.Logger) error {
	refresh := func() status.Snapshot {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		if coalesced != nil {
			tracker.SetCoalesced(coalesced())
		}
		return tracker.Snapshot()
	}

	shutdown := func(reason string) {
		event := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     "SHUTDOWN",
			Reason:    reason,
			Retained:  true,
		}
		if tracker != nil {
			event.RawPayload = status.FormatStatusEvent(refresh(), "SHUTDOWN", reason)
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Warn("mqtt: shutdown event", "err", err)
		} else {
			log.Info("published shutdown event", "reason", reason)
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info("received signal, shutting down", "signal", s)
			shutdown(signalName(s))
			return nil

		case err := <-done:
			if err == nil || errors.Is(err, context.Canceled) {
				shutdown("STOPPED")
				return nil
			}
			log.Error("pipeline stopped", "err", err)
			shutdown("ERROR")
			return err

		case <-heartbeat:
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				snap := refresh()
				log.Info("heartbeat",
					"uptime", snap.Uptime().Round(time.Second),
					"temperature_samples", snap.Counts.TemperatureSamples,
					"tilt_samples", snap.Counts.TiltSamples,
					"alarm_trips", snap.Counts.AlarmTrips,
					"read_errors", snap.Counts.ReadErrors,
					"coalesced", snap.Coalesced)
				event.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("mqtt: heartbeat", "err", err)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
