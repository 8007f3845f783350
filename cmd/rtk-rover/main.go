package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtk-rover/internal/battery"
	"rtk-rover/internal/config"
	"rtk-rover/internal/led"
	"rtk-rover/internal/netmon"
	"rtk-rover/internal/ntrip"
	"rtk-rover/internal/receiver"
	"rtk-rover/internal/rover"
	"rtk-rover/internal/telemetry"
	"rtk-rover/internal/ubx"
	"rtk-rover/internal/web"
)

const firmwareVersion = "1.2.0"

// multiStatus fans the link quality out to every configured sink.
type multiStatus []rover.StatusSink

func (m multiStatus) Update(q rover.LinkQuality) {
	for _, s := range m {
		s.Update(q)
	}
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./rover.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := ntrip.NewClient(ntrip.Config{
		Host:       cfg.Ntrip.Host,
		Port:       cfg.Ntrip.Port,
		Mountpoint: cfg.Ntrip.Mountpoint,
		Username:   cfg.Ntrip.Username,
		Password:   cfg.Ntrip.Password,
	})
	defer client.Disconnect()

	transport, err := openTransport(cfg.Receiver)
	if err != nil {
		log.Fatalf("receiver transport init failed: %v", err)
	}
	defer func() { _ = transport.Close() }()

	monitor := netmon.New(cfg.Network.Interface)

	var statusSinks multiStatus
	if cfg.LED.Enable {
		l := led.New(led.Config{
			RedPin:   cfg.LED.RedPin,
			GreenPin: cfg.LED.GreenPin,
			BluePin:  cfg.LED.BluePin,
		})
		defer func() { _ = l.Close() }()
		go l.Run(ctx)
		statusSinks = append(statusSinks, l)
	}

	var webStatus *web.Status
	var hub *web.Hub
	if cfg.Web.Enable {
		webStatus = web.NewStatus()
		hub = web.NewHub()
		statusSinks = append(statusSinks, webStatus)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, webStatus, hub); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	var telemetrySinks telemetry.Multi
	if cfg.Telemetry.Dashboard.Enable {
		telemetrySinks = append(telemetrySinks, telemetry.NewDashboard(cfg.Telemetry.Dashboard.URL))
	}
	if cfg.Telemetry.MQTT.Enable {
		m, err := telemetry.NewMQTT(telemetry.MQTTConfig{
			BrokerURL: cfg.Telemetry.MQTT.Broker,
			ClientID:  cfg.Telemetry.MQTT.ClientID,
			Topic:     cfg.Telemetry.MQTT.Topic,
			Username:  cfg.Telemetry.MQTT.Username,
			Password:  cfg.Telemetry.MQTT.Password,
		})
		if err != nil {
			// Broker may simply not be up yet; run without it.
			log.Printf("mqtt sink unavailable: %v", err)
		} else {
			defer m.Close()
			telemetrySinks = append(telemetrySinks, m)
		}
	}

	var gauge *battery.Gauge
	if cfg.Battery.Enable {
		gauge, err = battery.Open(cfg.Battery.I2CBus)
		if err != nil {
			log.Printf("battery gauge unavailable: %v", err)
		} else {
			defer func() { _ = gauge.Close() }()
		}
	}

	auxFn := func() rover.Aux {
		pct := -1
		if gauge != nil {
			pct = gauge.Percentage()
		}
		return rover.Aux{BatteryPercent: pct, FirmwareVersion: firmwareVersion}
	}

	onFix := func(fix ubx.PositionFix) {
		if webStatus != nil {
			webStatus.SetFix(fix)
		}
		if hub != nil {
			hub.BroadcastFix(fix)
		}
	}

	var statusSink rover.StatusSink
	if len(statusSinks) > 0 {
		statusSink = statusSinks
	}
	var telemetrySink rover.TelemetrySink
	if len(telemetrySinks) > 0 {
		telemetrySink = telemetrySinks
	}

	orch := rover.New(rover.Config{
		RetryInterval:     cfg.Relay.RetryInterval,
		TelemetryInterval: cfg.Telemetry.Interval,
		OnFix:             onFix,
		AuxFn:             auxFn,
	}, client, monitor, transport, statusSink, telemetrySink)

	log.Printf("rtk-rover %s starting", firmwareVersion)
	log.Printf("caster=%s:%d mountpoint=%s transport=%s interface=%s",
		cfg.Ntrip.Host, cfg.Ntrip.Port, cfg.Ntrip.Mountpoint,
		cfg.Receiver.Transport, cfg.Network.Interface)

	ticker := time.NewTicker(cfg.Relay.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("rtk-rover stopping")
			return
		case now := <-ticker.C:
			orch.Tick(now)
			if webStatus != nil {
				webStatus.SetStats(orch.Stats())
				webStatus.SetCaster(client.Snapshot())
				webStatus.SetPower(auxFn().BatteryPercent, firmwareVersion)
				webStatus.MarkTick(now.UTC())
			}
		}
	}
}

func openTransport(cfg config.ReceiverConfig) (rover.ReceiverTransport, error) {
	if cfg.Transport == "serial" {
		return receiver.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
	}
	return receiver.OpenDDC(cfg.I2CBus, cfg.I2CAddr)
}
