package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gknock/config"
	"gknock/internal/metrics"
	"gknock/internal/notify"
	"gknock/internal/portlist"
	"gknock/internal/settings"
)

func TestNewTarget_ParsesBothLists(t *testing.T) {
	cfg := config.Default()
	cfg.OpenPorts = "5000, x, 7000"
	cfg.ClosePorts = "70000"
	rec := &notify.Recorder{}
	m := metrics.New()

	tg := NewTarget(cfg, rec, m)

	ports, host, delay := tg.Sequence(notify.Open)
	assert.Equal(t, portlist.Sequence{5000, 7000}, ports)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, time.Second, delay)

	ports, _, _ = tg.CloseTarget()
	assert.Empty(t, ports)

	assert.Equal(t, []notify.Event{
		notify.ParseFailed{List: notify.Open, Position: 2, Token: "x", Reason: "not a number"},
		notify.ParseFailed{List: notify.Close, Position: 1, Token: "70000", Reason: "out of range 0-65535"},
	}, rec.Events())
	assert.Equal(t, int64(2), m.Snapshot().ParseFailures)
}

func TestTarget_SetHost(t *testing.T) {
	tg := NewTarget(config.Default(), nil, nil)

	require.NoError(t, tg.SetHost("knock.example.com"))
	_, host, _ := tg.Sequence(notify.Open)
	assert.Equal(t, "knock.example.com", host)

	assert.Error(t, tg.SetHost("bad host"))
	_, host, _ = tg.Sequence(notify.Open)
	assert.Equal(t, "knock.example.com", host, "invalid host must not replace the current one")
}

func TestTarget_SetHostNoDNS(t *testing.T) {
	cfg := config.Default()
	cfg.NoDNS = true
	tg := NewTarget(cfg, nil, nil)

	assert.Error(t, tg.SetHost("knock.example.com"))
	assert.NoError(t, tg.SetHost("192.0.2.1"))
}

func TestTarget_SetDelay(t *testing.T) {
	tg := NewTarget(config.Default(), nil, nil)

	require.NoError(t, tg.SetDelay(" 250 "))
	_, _, delay := tg.Sequence(notify.Close)
	assert.Equal(t, 250*time.Millisecond, delay)

	for _, bad := range []string{"soon", "-5", "1.5", ""} {
		assert.Error(t, tg.SetDelay(bad), bad)
	}
	_, _, delay = tg.Sequence(notify.Close)
	assert.Equal(t, 250*time.Millisecond, delay)
}

func TestTarget_SettingsKeepsTypedText(t *testing.T) {
	tg := NewTarget(config.Default(), nil, nil)
	tg.SetPorts(notify.Open, "1,2 , bad")

	assert.Equal(t, settings.Settings{
		Host:        "127.0.0.1",
		OpenPorts:   "1,2 , bad",
		ClosePorts:  "7000, 6000, 5000",
		DelayMillis: 1000,
	}, tg.Settings())
}

func TestTarget_String(t *testing.T) {
	tg := NewTarget(config.Default(), nil, nil)
	assert.Equal(t,
		"host   127.0.0.1\nopen   [5000, 6000, 7000]\nclose  [7000, 6000, 5000]\ndelay  1000 ms",
		tg.String())
}
