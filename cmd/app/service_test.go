package app

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"

	"serialsettings/connection"
	"serialsettings/settings"
)

type fakeHandle struct {
	closed   bool
	closeErr error
}

func (f *fakeHandle) Read([]byte) (int, error)    { return 0, io.EOF }
func (f *fakeHandle) Write(b []byte) (int, error) { return len(b), nil }
func (f *fakeHandle) Close() error {
	f.closed = true
	return f.closeErr
}

// fakeDriver hands out fake handles until failAfter opens have succeeded.
type fakeDriver struct {
	opened    []*fakeHandle
	failAfter int
}

func (d *fakeDriver) open(*serial.Config) (io.ReadWriteCloser, error) {
	if d.failAfter > 0 && len(d.opened) >= d.failAfter {
		return nil, errors.New("device busy")
	}
	h := &fakeHandle{}
	d.opened = append(d.opened, h)
	return h, nil
}

func newTestApplication(t *testing.T, opts ...connection.PortOption) *Application {
	t.Helper()
	a := &Application{
		App:         test.NewApp(),
		ConfigPath:  filepath.Join(t.TempDir(), "config.json"),
		PortOptions: opts,
	}
	a.Init()
	t.Cleanup(a.Window.Close)
	return a
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, connection.DefaultConfig(), config.Serial)
	assert.FileExists(t, path)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := connection.DefaultConfig()
	c.Port = "/dev/ttyUSB0"
	c.BaudRate = 57600
	c.ReadTimeout = connection.Seconds(3)
	c.RtsCts = true
	require.NoError(t, SaveConfig(path, &ConfigApp{Serial: c}))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c, config.Serial)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serial":{"port":"COM2","baudrate":1,"bytesize":8,"parity":"N","stopbits":1}}`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, connection.DefaultConfig(), config.Serial)
}

func TestLoadConfigBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	config, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Equal(t, connection.DefaultConfig(), config.Serial)
}

func TestTogglePortWithoutPort(t *testing.T) {
	a := newTestApplication(t)

	assert.ErrorIs(t, a.TogglePort(connection.NoPorts), connection.ErrNoPort)
	assert.ErrorIs(t, a.TogglePort(""), connection.ErrNoPort)
	assert.False(t, a.Port.IsOpen())
}

func TestShowSettingsWindowWithoutParent(t *testing.T) {
	a := newTestApplication(t)

	view, err := a.ShowSettingsWindow(nil)
	assert.ErrorIs(t, err, settings.ErrNoConnection)
	assert.Nil(t, view)
}

func TestApplySettingsPersists(t *testing.T) {
	a := newTestApplication(t)

	c := connection.DefaultConfig()
	c.Port = "COM7"
	c.BaudRate = 19200
	c.XonXoff = true
	require.NoError(t, a.applySettings(c))

	assert.Equal(t, c, a.Port.Settings())
	saved, err := LoadConfig(a.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, c, saved.Serial)
}

func TestApplySettingsRejectsInvalid(t *testing.T) {
	a := newTestApplication(t)

	c := connection.DefaultConfig()
	c.Parity = "Z"
	assert.ErrorIs(t, a.applySettings(c), connection.ErrInvalidConfig)
	assert.Equal(t, connection.DefaultConfig(), a.Port.Settings())
}

func TestSettingsWindowLifecycle(t *testing.T) {
	a := newTestApplication(t)

	view, err := a.ShowSettingsWindow(a.Window)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Same(t, view, a.settingsView)

	view.Window().Close()
	assert.True(t, view.Closed())
	assert.Nil(t, a.settingsView)
}

func TestBuildShowsClosedStatus(t *testing.T) {
	a := newTestApplication(t)
	a.Build()

	assert.Equal(t, "Closed", a.StatusLabel.Text)
	assert.Equal(t, "Open port", a.OpenButton.Text)
	assert.NotEmpty(t, a.PortSelect.Options)
}

func TestTogglePortOpenClose(t *testing.T) {
	driver := &fakeDriver{}
	a := newTestApplication(t, connection.WithOpener(driver.open))
	a.Build()

	require.NoError(t, a.TogglePort("COM5"))
	assert.True(t, a.Port.IsOpen())
	assert.Equal(t, "COM5", a.Port.Settings().Port)
	assert.Equal(t, "COM5 opened, 9600 8N1", a.StatusLabel.Text)
	assert.Equal(t, "Close port", a.OpenButton.Text)

	require.NoError(t, a.TogglePort("COM5"))
	assert.False(t, a.Port.IsOpen())
	require.Len(t, driver.opened, 1)
	assert.True(t, driver.opened[0].closed)
	assert.Equal(t, "Closed", a.StatusLabel.Text)
	assert.Equal(t, "Open port", a.OpenButton.Text)
}

func TestApplySettingsReopenFailure(t *testing.T) {
	driver := &fakeDriver{failAfter: 1}
	a := newTestApplication(t, connection.WithOpener(driver.open))
	a.Build()
	require.NoError(t, a.TogglePort("COM1"))
	require.Equal(t, "Close port", a.OpenButton.Text)

	next := a.Port.Settings()
	next.BaudRate = 19200
	err := a.applySettings(next)

	assert.EqualError(t, err, "open COM1: device busy")
	assert.False(t, a.Port.IsOpen())
	assert.Equal(t, "Closed", a.StatusLabel.Text)
	assert.Equal(t, "Open port", a.OpenButton.Text)
	assert.Equal(t, 19200, a.Config.Serial.BaudRate)

	saved, err := LoadConfig(a.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, a.Port.Settings(), saved.Serial)
}

func TestApplySettingsUpdatesOpenStatus(t *testing.T) {
	driver := &fakeDriver{}
	a := newTestApplication(t, connection.WithOpener(driver.open))
	a.Build()
	require.NoError(t, a.TogglePort("COM2"))

	next := a.Port.Settings()
	next.BaudRate = 115200
	next.Parity = connection.ParityEven
	require.NoError(t, a.applySettings(next))

	assert.True(t, a.Port.IsOpen())
	assert.Len(t, driver.opened, 2)
	assert.Equal(t, "COM2 opened, 115200 8E1", a.StatusLabel.Text)
}

func TestUpdatePortsReselectsMissingPort(t *testing.T) {
	a := newTestApplication(t)
	a.Build()

	a.updatePorts([]string{"/dev/ttyUSB0", "/dev/ttyUSB1"})
	assert.Equal(t, "/dev/ttyUSB0", a.PortSelect.Selected)

	a.PortSelect.SetSelected("/dev/ttyUSB1")
	a.updatePorts([]string{"/dev/ttyS0", "/dev/ttyUSB1"})
	assert.Equal(t, "/dev/ttyUSB1", a.PortSelect.Selected)

	a.updatePorts([]string{"/dev/ttyS0"})
	assert.Equal(t, "/dev/ttyS0", a.PortSelect.Selected)
}

func TestShutdownClosesPort(t *testing.T) {
	driver := &fakeDriver{}
	a := newTestApplication(t, connection.WithOpener(driver.open))
	require.NoError(t, a.TogglePort("COM3"))

	a.shutdown()
	assert.False(t, a.Port.IsOpen())
	assert.True(t, driver.opened[0].closed)

	a.shutdown()
	assert.Len(t, driver.opened, 1)
}

func TestShutdownLogsCloseError(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	driver := &fakeDriver{}
	a := newTestApplication(t, connection.WithOpener(driver.open))
	require.NoError(t, a.TogglePort("COM3"))
	driver.opened[0].closeErr = errors.New("i/o error")

	a.shutdown()
	assert.False(t, a.Port.IsOpen())
	assert.Contains(t, buf.String(), "error closing port on exit: close COM3: i/o error")
}
