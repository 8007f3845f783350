package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Ntrip     NtripConfig     `yaml:"ntrip"`
	Receiver  ReceiverConfig  `yaml:"receiver"`
	Network   NetworkConfig   `yaml:"network"`
	Relay     RelayConfig     `yaml:"relay"`
	LED       LEDConfig       `yaml:"led"`
	Battery   BatteryConfig   `yaml:"battery"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Web       WebConfig       `yaml:"web"`
}

type NtripConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Mountpoint string `yaml:"mountpoint"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
}

type ReceiverConfig struct {
	// Transport selects how the receiver is attached: "i2c" or "serial".
	Transport string `yaml:"transport"`

	I2CBus  string `yaml:"i2c_bus"`
	I2CAddr uint16 `yaml:"i2c_addr"`

	SerialPort string `yaml:"serial_port"`
	SerialBaud int    `yaml:"serial_baud"`
}

type NetworkConfig struct {
	Interface string `yaml:"interface"`
}

type RelayConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type LEDConfig struct {
	Enable   bool `yaml:"enable"`
	RedPin   int  `yaml:"red_pin"`
	GreenPin int  `yaml:"green_pin"`
	BluePin  int  `yaml:"blue_pin"`
}

type BatteryConfig struct {
	Enable bool   `yaml:"enable"`
	I2CBus string `yaml:"i2c_bus"`
}

type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`

	Dashboard DashboardConfig `yaml:"dashboard"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

type DashboardConfig struct {
	Enable bool   `yaml:"enable"`
	URL    string `yaml:"url"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Ntrip.Host == "" {
		return Config{}, fmt.Errorf("ntrip.host is required")
	}
	if cfg.Ntrip.Mountpoint == "" {
		return Config{}, fmt.Errorf("ntrip.mountpoint is required")
	}
	if cfg.Ntrip.Port <= 0 {
		cfg.Ntrip.Port = 2101
	}

	switch cfg.Receiver.Transport {
	case "":
		cfg.Receiver.Transport = "i2c"
	case "i2c", "serial":
	default:
		return Config{}, fmt.Errorf("receiver.transport must be \"i2c\" or \"serial\", got %q", cfg.Receiver.Transport)
	}
	if cfg.Receiver.Transport == "i2c" && cfg.Receiver.I2CAddr == 0 {
		cfg.Receiver.I2CAddr = 0x42
	}
	if cfg.Receiver.Transport == "serial" {
		if cfg.Receiver.SerialPort == "" {
			return Config{}, fmt.Errorf("receiver.serial_port is required for the serial transport")
		}
		if cfg.Receiver.SerialBaud <= 0 {
			cfg.Receiver.SerialBaud = 38400
		}
	}

	if cfg.Network.Interface == "" {
		cfg.Network.Interface = "wlan0"
	}

	if cfg.Relay.TickInterval <= 0 {
		cfg.Relay.TickInterval = 100 * time.Millisecond
	}
	if cfg.Relay.RetryInterval <= 0 {
		cfg.Relay.RetryInterval = 5 * time.Second
	}

	if cfg.LED.Enable {
		if cfg.LED.RedPin <= 0 || cfg.LED.GreenPin <= 0 || cfg.LED.BluePin <= 0 {
			return Config{}, fmt.Errorf("led.red_pin, led.green_pin and led.blue_pin are required when led.enable is true")
		}
	}

	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = 10 * time.Second
	}
	if cfg.Telemetry.Dashboard.Enable && cfg.Telemetry.Dashboard.URL == "" {
		return Config{}, fmt.Errorf("telemetry.dashboard.url is required when telemetry.dashboard.enable is true")
	}
	if cfg.Telemetry.MQTT.Enable {
		if cfg.Telemetry.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("telemetry.mqtt.broker is required when telemetry.mqtt.enable is true")
		}
		if cfg.Telemetry.MQTT.ClientID == "" {
			cfg.Telemetry.MQTT.ClientID = "rtk-rover"
		}
		if cfg.Telemetry.MQTT.Topic == "" {
			cfg.Telemetry.MQTT.Topic = "rtk/position"
		}
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	return cfg, nil
}
