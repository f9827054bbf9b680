package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"serialsettings/connection"
	"serialsettings/settings"
)

// LoadConfig reads the saved settings. A missing file is created with the
// defaults.
func LoadConfig(filename string) (*ConfigApp, error) {
	config := &ConfigApp{
		Serial: connection.DefaultConfig(),
	}

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return config, SaveConfig(filename, config)
		}
		return config, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(config); err != nil {
		return &ConfigApp{Serial: connection.DefaultConfig()}, fmt.Errorf("decode %s: %w", filename, err)
	}
	if err := config.Serial.Validate(); err != nil {
		log.Println("saved serial settings rejected, using defaults:", err)
		config.Serial = connection.DefaultConfig()
	}
	return config, nil
}

func SaveConfig(filename string, config *ConfigApp) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(config)
}

func (a *Application) Init() {
	if a.App == nil {
		a.App = app.New()
	}
	if a.ConfigPath == "" {
		a.ConfigPath = configFile
	}
	a.Window = a.App.NewWindow(windowTitle)
	a.Window.Resize(fyne.NewSize(420, 160))

	config, err := LoadConfig(a.ConfigPath)
	if err != nil {
		log.Println("error loading config:", err)
	}
	a.Config = config
	a.Port = connection.NewPort(config.Serial, a.PortOptions...)
}

// TogglePort opens the selected port, or closes it when it is already open.
func (a *Application) TogglePort(selectedPort string) error {
	a.PortMutex.Lock()
	defer a.PortMutex.Unlock()
	defer a.updateStatus()

	if a.Port.IsOpen() {
		return a.Port.Close()
	}

	if selectedPort == "" || selectedPort == connection.NoPorts {
		log.Println("no port selected")
		return connection.ErrNoPort
	}

	next := a.Port.Settings()
	next.Port = selectedPort
	if err := a.Port.Configure(next); err != nil {
		return err
	}
	return a.Port.Open()
}

// ShowSettingsWindow opens the connection settings for the current port.
// Only one settings window is open at a time; asking again focuses it.
func (a *Application) ShowSettingsWindow(parent fyne.Window) (*settings.View, error) {
	if a.settingsView != nil {
		a.settingsView.Window().RequestFocus()
		return a.settingsView, nil
	}

	view, err := settings.NewView(parent, a.Port,
		settings.WithApply(a.applySettings),
		settings.WithOnClosed(func() { a.settingsView = nil }),
	)
	if err != nil {
		return nil, err
	}
	a.settingsView = view
	view.Show()
	return view, nil
}

// applySettings hands c to the port and saves whatever the port ends up
// with. A failed reopen still stores c, so the saved file follows the port.
func (a *Application) applySettings(c connection.Config) error {
	a.PortMutex.Lock()
	defer a.PortMutex.Unlock()
	defer a.updateStatus()

	err := a.Port.Configure(c)
	if errors.Is(err, connection.ErrInvalidConfig) {
		return err
	}

	a.Config.Serial = a.Port.Settings()
	if saveErr := SaveConfig(a.ConfigPath, a.Config); saveErr != nil {
		log.Println("error saving config:", saveErr)
	}
	return err
}

func (a *Application) updateStatus() {
	if a.StatusLabel == nil || a.OpenButton == nil {
		return
	}
	c := a.Port.Settings()
	if a.Port.IsOpen() {
		a.OpenButton.SetText(closeText)
		a.StatusLabel.SetText(fmt.Sprintf("%s opened, %d %d%s%s",
			c.Port, c.BaudRate, c.ByteSize, c.Parity, c.StopBits))
		return
	}
	a.OpenButton.SetText(openText)
	a.StatusLabel.SetText("Closed")
}

// Build lays out the main window.
func (a *Application) Build() {
	ports := connection.AvailablePorts()

	a.PortSelect = widget.NewSelect(ports, nil)
	a.PortSelect.PlaceHolder = "Select port"
	if saved := a.Config.Serial.Port; saved != "" {
		a.PortSelect.SetSelected(saved)
	}
	if a.PortSelect.Selected == "" {
		a.PortSelect.SetSelectedIndex(0)
	}

	a.OpenButton = widget.NewButton(openText, func() {
		if err := a.TogglePort(a.PortSelect.Selected); err != nil {
			dialog.ShowError(err, a.Window)
		}
	})

	settingsButton := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		if _, err := a.ShowSettingsWindow(a.Window); err != nil {
			dialog.ShowError(err, a.Window)
		}
	})

	a.StatusLabel = widget.NewLabel("")
	a.updateStatus()

	topBar := container.NewBorder(nil, nil, nil, container.NewHBox(a.OpenButton, settingsButton), a.PortSelect)
	a.Window.SetContent(container.NewVBox(topBar, widget.NewSeparator(), a.StatusLabel))
}

func (a *Application) refreshPorts() {
	for range time.Tick(portsRefresh * time.Second) {
		a.updatePorts(connection.AvailablePorts())
	}
}

// updatePorts replaces the port list. When the selected port is gone the
// first entry is selected instead.
// TODO: marshal onto the UI goroutine with fyne.Do once fyne is >= 2.6.
func (a *Application) updatePorts(ports []string) {
	if slices.Equal(ports, a.PortSelect.Options) {
		return
	}
	a.PortSelect.SetOptions(ports)
	if a.PortSelect.SelectedIndex() < 0 {
		log.Println("selected port disappeared:", a.PortSelect.Selected)
		a.PortSelect.SetSelectedIndex(0)
	}
}

func (a *Application) Run() {
	a.Build()
	go a.refreshPorts()

	a.Window.SetOnClosed(a.shutdown)
	a.Window.ShowAndRun()
}

// shutdown closes the port when the main window goes away.
func (a *Application) shutdown() {
	a.PortMutex.Lock()
	defer a.PortMutex.Unlock()

	if !a.Port.IsOpen() {
		return
	}
	if err := a.Port.Close(); err != nil {
		log.Println("error closing port on exit:", err)
	}
}
