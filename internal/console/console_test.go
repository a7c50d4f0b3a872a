package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gknock/internal/notify"
)

// fakeController records the commands it receives.
type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeController) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeController) get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Open()  { f.record("open") }
func (f *fakeController) Close() { f.record("close") }
func (f *fakeController) Set(field, value string) error {
	f.record("set " + field + "=" + value)
	return f.err
}
func (f *fakeController) Show() string   { f.record("show"); return "host 127.0.0.1" }
func (f *fakeController) Save()          { f.record("save") }
func (f *fakeController) Status() string { f.record("status"); return `{"knocks_sent":0}` }
func (f *fakeController) Quit()          { f.record("quit") }

// syncBuffer guards a bytes.Buffer shared by Run and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(t *testing.T, input string, ctl Controller) string {
	t.Helper()
	var out syncBuffer
	c := New(strings.NewReader(input), &out)
	require.NoError(t, c.Run(context.Background(), ctl))
	return out.String()
}

func TestRun_DispatchesCommands(t *testing.T) {
	ctl := &fakeController{}
	out := run(t, "open\n\nclose\nshow\nsave\nstatus\nquit\n", ctl)

	// EOF after quit counts as another quit.
	assert.Equal(t, []string{"open", "close", "show", "save", "status", "quit", "quit"}, ctl.get())
	assert.Contains(t, out, "host 127.0.0.1")
	assert.Contains(t, out, `{"knocks_sent":0}`)
	assert.NotContains(t, out, prompt, "no prompt without a terminal")
}

func TestRun_SetKeepsRestOfLine(t *testing.T) {
	ctl := &fakeController{}
	run(t, "set open 1, 2,  3\nSET Delay 250\nset host   gw.example.com  \n", ctl)

	assert.Equal(t, []string{
		"set open=1, 2,  3",
		"set delay=250",
		"set host=gw.example.com",
		"quit",
	}, ctl.get())
}

func TestRun_SetErrorsAndUsage(t *testing.T) {
	ctl := &fakeController{err: errors.New(`"soon" is not a number of milliseconds`)}
	out := run(t, "set\nset delay soon\n", ctl)

	assert.Contains(t, out, "usage: set <host|open|close|delay> <value>")
	assert.Contains(t, out, `set delay: "soon" is not a number of milliseconds`)
}

func TestRun_UnknownAndHelp(t *testing.T) {
	out := run(t, "knock\nhelp\n", &fakeController{})
	assert.Contains(t, out, `unknown command "knock" (try help)`)
	assert.Contains(t, out, "set delay <ms>")
}

func TestRun_EOFIsQuit(t *testing.T) {
	ctl := &fakeController{}
	run(t, "", ctl)
	assert.Equal(t, []string{"quit"}, ctl.get())
}

func TestRun_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	c := New(pr, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx, &fakeController{}) }()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNotify_Lines(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out)

	c.Notify(notify.StepCompleted{Kind: notify.Open, Index: 0, Port: 5000, Host: "10.0.0.1"})
	c.Notify(notify.StepCompleted{Kind: notify.Open, Index: 1, Port: 6000, Host: "10.0.0.1"})
	c.Notify(notify.SequenceCompleted{Kind: notify.Open, Steps: 2})
	c.Notify(notify.ParseFailed{List: notify.Close, Position: 3, Token: "abc", Reason: "not a number"})
	c.Notify(notify.SaveCompleted{Path: "/tmp/config.json"})
	c.Notify(notify.SaveCompleted{Err: errors.New("disk full")})

	assert.Equal(t, strings.Join([]string{
		"open knock 1: 10.0.0.1:5000",
		"open knock 2: 10.0.0.1:6000",
		"open sequence complete (2 knocks)",
		`close ports: entry 3 "abc": not a number`,
		"settings saved to /tmp/config.json",
		"save failed: disk full",
	}, "\n")+"\n", out.String())
}

func TestNotify_RedrawsProgress(t *testing.T) {
	var out bytes.Buffer
	c := &Console{in: strings.NewReader(""), out: &out, redraw: true}

	c.Notify(notify.StepCompleted{Kind: notify.Close, Index: 0, Port: 7000, Host: "h"})
	c.Notify(notify.StepCompleted{Kind: notify.Close, Index: 1, Port: 6000, Host: "h"})
	c.Printf("interrupting output")
	c.Notify(notify.SequenceCompleted{Kind: notify.Close, Steps: 2})

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "close knock 2: h:6000"))
	assert.NotContains(t, got, "h:7000\n", "progress lines are not newline terminated")
	assert.Contains(t, got, "interrupting output\n")
	assert.True(t, strings.HasSuffix(got, "close sequence complete (2 knocks)\n"))
}

func TestPrintf_AddsNewline(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out)
	c.Printf("a %d", 1)
	c.Printf("b\n")
	assert.Equal(t, "a 1\nb\n", out.String())
}
