package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dkeye/carecall/internal/app/call"
	"github.com/dkeye/carecall/internal/domain"
)

// controller is the part of call.Machine the console drives.
type controller interface {
	Start(ctx context.Context, remote domain.UserID, remoteName string) error
	Accept(ctx context.Context) error
	Reject() error
	End()
	SetMicEnabled(bool)
	SetCameraEnabled(bool)
	Session() call.Session
}

type console struct {
	ctl   controller
	stats *packetCounter
	out   io.Writer
}

const usage = `commands:
  call <id> [name]   place a call
  accept | reject    answer the ringing call
  end                hang up
  mic on|off         gate the microphone
  cam on|off         gate the camera
  status             show the current call
  quit`

// run reads commands until quit, EOF, or ctx ends.
func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, usage)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.exec(ctx, line); quit {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the console should stop.
func (c *console) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd := fields[0]; cmd {
	case "call":
		if len(fields) < 2 {
			fmt.Fprintln(c.out, "usage: call <id> [name]")
			return false
		}
		name := strings.Join(fields[2:], " ")
		// Start blocks on device and negotiation work.
		go func() {
			if err := c.ctl.Start(ctx, domain.UserID(fields[1]), name); err != nil {
				fmt.Fprintf(c.out, "call failed: %v\n", err)
			}
		}()
	case "accept":
		go func() {
			if err := c.ctl.Accept(ctx); err != nil {
				fmt.Fprintf(c.out, "accept failed: %v\n", err)
			}
		}()
	case "reject":
		err = c.ctl.Reject()
	case "end":
		c.ctl.End()
	case "mic", "cam":
		on, ok := parseOnOff(fields)
		if !ok {
			fmt.Fprintf(c.out, "usage: %s on|off\n", cmd)
			return false
		}
		if cmd == "mic" {
			c.ctl.SetMicEnabled(on)
		} else {
			c.ctl.SetCameraEnabled(on)
		}
	case "status":
		c.printStatus()
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(c.out, usage)
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "%s: %v\n", fields[0], err)
	}
	return false
}

func parseOnOff(fields []string) (bool, bool) {
	if len(fields) != 2 {
		return false, false
	}
	switch fields[1] {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func (c *console) printStatus() {
	s := c.ctl.Session()
	if !s.State.Live() {
		fmt.Fprintf(c.out, "state: %s\n", s.State)
		return
	}
	fmt.Fprintf(c.out, "state: %s remote: %s (%s) mic: %v cam: %v\n",
		s.State, s.Remote, s.RemoteName, s.MicEnabled, s.CameraEnabled)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(c.out, "duration: %s\n", time.Since(s.StartedAt).Truncate(time.Second))
	}
	if c.stats != nil {
		fmt.Fprintf(c.out, "received: %d packets, %d bytes\n", c.stats.packets.Load(), c.stats.bytes.Load())
	}
}
