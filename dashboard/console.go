package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/room4-2/lelamp-dashboard/reconcile"
	"github.com/room4-2/lelamp-dashboard/refresh"
	"github.com/room4-2/lelamp-dashboard/state"
)

// ErrQuit is returned by Execute for the quit command
var ErrQuit = errors.New("quit")

const consoleHelp = `commands:
  rgb R G B          set and commit a color
  set r|g|b VALUE    edit one channel locally
  commit             send the current color to the lamp
  preset NAME        apply a preset (%s)
  play NAME          play an expression
  chat TEXT          send a chat message
  panel NAME         show expressions, conversations or logs
  refresh NAME       reload expressions, conversations or logs
  status             print the current state
  quit               exit`

// Execute runs one console line. The returned text is meant for the
// operator; errors describe bad input, never server failures.
func (d *Dashboard) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "rgb":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: rgb R G B")
		}
		var vals [3]int
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return "", fmt.Errorf("invalid color value %q", a)
			}
			vals[i] = v
		}
		c := d.Reconciler.SetLocalColor(state.Color{R: vals[0], G: vals[1], B: vals[2]})
		d.Reconciler.CommitColor(ctx)
		return c.String(), nil

	case "set":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: set r|g|b VALUE")
		}
		ch, err := state.ParseChannel(strings.ToLower(args[0]))
		if err != nil {
			return "", err
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("invalid color value %q", args[1])
		}
		return d.Reconciler.ApplyLocalColorEdit(ch, v).String(), nil

	case "commit":
		d.Reconciler.CommitColor(ctx)
		return d.ViewModel.Color().String(), nil

	case "preset":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: preset NAME")
		}
		if err := d.Reconciler.ApplyPresetByName(ctx, args[0]); err != nil {
			return "", err
		}
		return d.ViewModel.Color().String(), nil

	case "play":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: play NAME")
		}
		d.Reconciler.PlayExpression(ctx, args[0])
		return "", nil

	case "chat":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if text == "" {
			return "", fmt.Errorf("usage: chat TEXT")
		}
		d.Reconciler.SendChat(ctx, text)
		return "", nil

	case "panel":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: panel NAME")
		}
		p, err := state.ParsePanel(strings.ToLower(args[0]))
		if err != nil {
			return "", err
		}
		d.Coordinator.SetPanel(p)
		return "", nil

	case "refresh":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: refresh NAME")
		}
		r, err := refresh.ParseResource(strings.ToLower(args[0]))
		if err != nil {
			return "", err
		}
		d.Coordinator.Refresh(r)
		return "", nil

	case "status":
		return d.status(), nil

	case "help", "?":
		return fmt.Sprintf(consoleHelp, strings.Join(presetNames(), ", ")), nil

	case "quit", "exit":
		return "", ErrQuit

	default:
		return "", fmt.Errorf("unknown command %q, try help", cmd)
	}
}

// RunConsole reads commands from in until EOF, quit or ctx is done
func (d *Dashboard) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			text, err := d.Execute(ctx, line)
			if errors.Is(err, ErrQuit) {
				return ErrQuit
			}
			if err != nil {
				fmt.Fprintf(out, "❌ %v\n", err)
				continue
			}
			if text != "" {
				fmt.Fprintln(out, text)
			}
		}
	}
}

func (d *Dashboard) status() string {
	snap := d.ViewModel.Snapshot()
	last := snap.LastConversation
	rows := [][2]string{
		{"connection", fmt.Sprintf("%s (attempts: %d)", d.Manager.State(), d.Manager.Attempts())},
		{"session", fmt.Sprintf("%s (hardware: %v)", snap.Session.ShortID(), snap.Session.HardwarePresent)},
		{"color", snap.Color.String()},
		{"panel", snap.Panel.String()},
		{"expressions", fmt.Sprintf("%s (%d)", snap.Expressions.Status, len(snap.Expressions.Items))},
		{"conversations", fmt.Sprintf("%s (%d)", snap.Conversations.Status, len(snap.Conversations.Items))},
		{"audit log", fmt.Sprintf("%s (%d)", snap.AuditLogs.Status, len(snap.AuditLogs.Items))},
		{"last", fmt.Sprintf("%q -> %q", last.UserInput, last.AIResponse)},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%-14s %s", r[0]+":", r[1]))
	}
	return strings.Join(lines, "\n")
}

func presetNames() []string {
	names := make([]string, 0, len(reconcile.Presets))
	for name := range reconcile.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
