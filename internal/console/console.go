// Package console is the interactive terminal front end: it reads
// session commands and renders knock notifications.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ahmetb/go-cursor"
	"golang.org/x/term"

	"gknock/internal/notify"
	"gknock/util"
)

const prompt = "gknock> "

// Controller carries out session commands.
type Controller interface {
	Open()
	Close()
	Set(field, value string) error
	Show() string
	Save()
	Status() string
	// Quit asks for the session to end.  The request may be ignored,
	// in which case the session keeps reading commands.
	Quit()
}

// Console renders notifications to out and reads commands from in.
// It is safe for concurrent use: the sequencer goroutine renders
// events while Run reads input.
type Console struct {
	in  io.Reader
	out io.Writer

	interactive bool // prompt for input
	redraw      bool // rewrite progress lines in place

	mu       sync.Mutex
	progress bool // a progress line without a newline is on screen
}

// New returns a console over in and out.  Prompting and in-place
// progress are enabled only when in/out are terminals.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:          in,
		out:         out,
		interactive: isTerminal(in),
		redraw:      isTerminal(out),
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printf writes a line of command output.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endProgress()
	fmt.Fprintf(c.out, format, args...)
	if !strings.HasSuffix(format, "\n") {
		fmt.Fprintln(c.out)
	}
}

// endProgress terminates an in-place progress line.  Caller holds mu.
func (c *Console) endProgress() {
	if c.progress {
		fmt.Fprint(c.out, "\r"+cursor.ClearEntireLine())
		c.progress = false
	}
}

func (c *Console) showPrompt() {
	if !c.interactive {
		return
	}
	c.mu.Lock()
	fmt.Fprint(c.out, prompt)
	c.mu.Unlock()
}

// Notify renders e.  It implements notify.Sink.
func (c *Console) Notify(e notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case notify.StepCompleted:
		line := fmt.Sprintf("%s knock %d: %s", ev.Kind, ev.Index+1, util.FormatAddr(ev.Host, int(ev.Port)))
		if c.redraw {
			fmt.Fprint(c.out, "\r"+cursor.ClearEntireLine()+line)
			c.progress = true
			return
		}
		fmt.Fprintln(c.out, line)

	case notify.SequenceCompleted:
		c.endProgress()
		fmt.Fprintf(c.out, "%s sequence complete (%d knocks)\n", ev.Kind, ev.Steps)
		if c.interactive {
			fmt.Fprint(c.out, prompt)
		}

	case notify.ParseFailed:
		c.endProgress()
		fmt.Fprintf(c.out, "%s ports: entry %d %q: %s\n", ev.List, ev.Position, ev.Token, ev.Reason)

	case notify.SaveCompleted:
		c.endProgress()
		if ev.Err != nil {
			fmt.Fprintf(c.out, "save failed: %v\n", ev.Err)
		} else {
			fmt.Fprintf(c.out, "settings saved to %s\n", ev.Path)
		}
	}
}

// Run reads commands until ctx is done or input ends.  End of input is
// treated as a quit request.
func (c *Console) Run(ctx context.Context, ctl Controller) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.showPrompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				ctl.Quit()
				return nil
			}
			c.dispatch(ctl, line)
			c.showPrompt()
		}
	}
}

func (c *Console) dispatch(ctl Controller, line string) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "":
	case "open":
		ctl.Open()
	case "close":
		ctl.Close()
	case "set":
		field, value, _ := strings.Cut(rest, " ")
		if field == "" {
			c.Printf("usage: set <host|open|close|delay> <value>")
			return
		}
		if err := ctl.Set(strings.ToLower(field), strings.TrimSpace(value)); err != nil {
			c.Printf("set %s: %v", field, err)
		}
	case "show":
		c.Printf("%s", ctl.Show())
	case "save":
		ctl.Save()
	case "status":
		c.Printf("%s", ctl.Status())
	case "help", "?":
		c.Printf("%s", helpText)
	case "quit", "exit":
		ctl.Quit()
	default:
		c.Printf("unknown command %q (try help)", name)
	}
}

const helpText = `commands:
  open                    knock the open sequence
  close                   knock the close sequence
  set host <host>         change the knock target
  set open <ports>        change the open sequence, e.g. 5000, 6000, 7000
  set close <ports>       change the close sequence
  set delay <ms>          change the pause after each knock
  show                    print the current target
  save                    write the current target to the settings file
  status                  print knock counters
  quit                    knock the close sequence and exit`
