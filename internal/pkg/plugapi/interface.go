package plugapi

import (
	"context"
	"time"
)

// DeviceInfo is the subset of the plug's get_device_info reply that the
// service and the diagnostics care about
type DeviceInfo struct {
	DeviceOn        bool   `json:"device_on"`
	Model           string `json:"model"`
	Type            string `json:"type"`
	FirmwareVersion string `json:"fw_ver"`
	Nickname        string `json:"nickname"`
}

// EnergyUsage is one energy meter sample from a P110 class plug
type EnergyUsage struct {
	TodayRuntime int `json:"today_runtime"`
	MonthRuntime int `json:"month_runtime"`
	TodayEnergy  int `json:"today_energy"`
	MonthEnergy  int `json:"month_energy"`
	CurrentPower int `json:"current_power"`
}

// CurrentPowerWatts converts the reported milliwatts to watts
func (e EnergyUsage) CurrentPowerWatts() float64 {
	return float64(e.CurrentPower) / 1000
}

// Plug is a handle to one device, valid for the request that obtained it
type Plug interface {
	Address() string
	On(ctx context.Context) error
	Off(ctx context.Context) error
	DeviceInfo(ctx context.Context) (*DeviceInfo, error)
	EnergyUsage(ctx context.Context) (*EnergyUsage, error)
}

// Client hands out device handles.  Implementations must be safe for
// concurrent use and must not cache handles between calls.
type Client interface {
	WithTimeout(d time.Duration) Client
	Plug(ctx context.Context, address string) (Plug, error)
}
