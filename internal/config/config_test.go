package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const minimalConfig = "ntrip:\n  host: caster.example.com\n  mountpoint: MOUNT1\n"

func TestLoad_RequiresCaster(t *testing.T) {
	path := writeTempConfig(t, "ntrip: {}\n")
	_, err := Load(path)
	requireErrEq(t, err, "ntrip.host is required")

	path = writeTempConfig(t, "ntrip:\n  host: caster.example.com\n")
	_, err = Load(path)
	requireErrEq(t, err, "ntrip.mountpoint is required")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Ntrip.Port != 2101 {
		t.Fatalf("port=%d want 2101", cfg.Ntrip.Port)
	}
	if cfg.Receiver.Transport != "i2c" || cfg.Receiver.I2CAddr != 0x42 {
		t.Fatalf("receiver=%+v want i2c defaults", cfg.Receiver)
	}
	if cfg.Network.Interface != "wlan0" {
		t.Fatalf("interface=%q want wlan0", cfg.Network.Interface)
	}
	if cfg.Relay.TickInterval != 100*time.Millisecond {
		t.Fatalf("tick=%s want 100ms", cfg.Relay.TickInterval)
	}
	if cfg.Relay.RetryInterval != 5*time.Second {
		t.Fatalf("retry=%s want 5s", cfg.Relay.RetryInterval)
	}
	if cfg.Telemetry.Interval != 10*time.Second {
		t.Fatalf("telemetry interval=%s want 10s", cfg.Telemetry.Interval)
	}
}

func TestLoad_TransportValidation(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"receiver:\n  transport: spi\n")
	_, err := Load(path)
	requireErrEq(t, err, "receiver.transport must be \"i2c\" or \"serial\", got \"spi\"")

	path = writeTempConfig(t, minimalConfig+"receiver:\n  transport: serial\n")
	_, err = Load(path)
	requireErrEq(t, err, "receiver.serial_port is required for the serial transport")

	path = writeTempConfig(t, minimalConfig+"receiver:\n  transport: serial\n  serial_port: /dev/ttyAMA0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Receiver.SerialBaud != 38400 {
		t.Fatalf("baud=%d want 38400 default", cfg.Receiver.SerialBaud)
	}
}

func TestLoad_LEDRequiresPins(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"led:\n  enable: true\n  red_pin: 17\n")
	_, err := Load(path)
	requireErrEq(t, err, "led.red_pin, led.green_pin and led.blue_pin are required when led.enable is true")
}

func TestLoad_TelemetryValidation(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"telemetry:\n  dashboard:\n    enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "telemetry.dashboard.url is required when telemetry.dashboard.enable is true")

	path = writeTempConfig(t, minimalConfig+"telemetry:\n  mqtt:\n    enable: true\n")
	_, err = Load(path)
	requireErrEq(t, err, "telemetry.mqtt.broker is required when telemetry.mqtt.enable is true")

	path = writeTempConfig(t, minimalConfig+"telemetry:\n  mqtt:\n    enable: true\n    broker: tcp://localhost:1883\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telemetry.MQTT.ClientID != "rtk-rover" || cfg.Telemetry.MQTT.Topic != "rtk/position" {
		t.Fatalf("mqtt defaults=%+v", cfg.Telemetry.MQTT)
	}
}

func TestLoad_WebDefaultListen(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"web:\n  enable: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("listen=%q want :8080", cfg.Web.Listen)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeTempConfig(t, `ntrip:
  host: caster.example.com
  port: 2102
  mountpoint: MOUNT1
  username: rover
  password: secret
receiver:
  transport: i2c
  i2c_bus: "1"
  i2c_addr: 0x42
network:
  interface: eth0
led:
  enable: true
  red_pin: 17
  green_pin: 27
  blue_pin: 22
battery:
  enable: true
telemetry:
  dashboard:
    enable: true
    url: https://fleet.example.com/report
  mqtt:
    enable: true
    broker: tcp://localhost:1883
web:
  enable: true
  listen: ":9090"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Ntrip.Port != 2102 || cfg.Ntrip.Username != "rover" {
		t.Fatalf("ntrip=%+v", cfg.Ntrip)
	}
	if cfg.Network.Interface != "eth0" {
		t.Fatalf("interface=%q", cfg.Network.Interface)
	}
	if cfg.Web.Listen != ":9090" {
		t.Fatalf("listen=%q", cfg.Web.Listen)
	}
}
