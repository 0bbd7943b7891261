package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SerialConfig 单台仪器的串口参数
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	DataBits    int           `yaml:"dataBits"`
	Parity      string        `yaml:"parity"`
	Strict7Bit  bool          `yaml:"strict7bit"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

// DeviceConfig 仪器清单中的一条记录
type DeviceConfig struct {
	// Name 仪器名，清单内唯一
	Name string `yaml:"name"`
	// Driver 驱动标识，如 radleys-carousel
	Driver string `yaml:"driver"`
	// Simulation 仿真模式：不触碰串口，命令只记日志
	Simulation bool `yaml:"simulation"`
	// MinCommandInterval 相邻命令最小间隔
	MinCommandInterval time.Duration `yaml:"minCommandInterval"`
	Serial             SerialConfig  `yaml:"serial"`
}

type deviceInventory struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// LoadDevices 从 YAML 清单文件加载仪器列表
func LoadDevices(path string) ([]DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device inventory: %w", err)
	}

	var inv deviceInventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parse device inventory: %w", err)
	}

	seen := make(map[string]bool, len(inv.Devices))
	for i, d := range inv.Devices {
		if d.Name == "" {
			return nil, fmt.Errorf("device #%d: name is required", i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate device name %q", d.Name)
		}
		seen[d.Name] = true
		if d.Driver == "" {
			return nil, fmt.Errorf("device %q: driver is required", d.Name)
		}
		if !d.Simulation && d.Serial.Port == "" {
			return nil, fmt.Errorf("device %q: serial.port is required outside simulation", d.Name)
		}
	}
	return inv.Devices, nil
}
