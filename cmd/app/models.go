package app

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"serialsettings/connection"
	"serialsettings/settings"
)

const (
	configFile   = "config.json"
	windowTitle  = "Serial Connection"
	openText     = "Open port"
	closeText    = "Close port"
	portsRefresh = 5
)

type ConfigApp struct {
	Serial connection.Config `json:"serial"`
}

type Application struct {
	App        fyne.App
	Window     fyne.Window
	Config     *ConfigApp
	ConfigPath string
	PortMutex  sync.Mutex
	Port       *connection.Port

	// PortOptions are passed to connection.NewPort by Init.
	PortOptions []connection.PortOption

	PortSelect   *widget.Select
	OpenButton   *widget.Button
	StatusLabel  *widget.Label
	settingsView *settings.View
}
