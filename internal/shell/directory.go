// Package shell is the local session directory: it owns child sessions
// (attached sub-shells and one-shot command executions) spawned on
// pseudo-terminals under a parent session's working directory.
package shell

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/asheshgoplani/workdeck/internal/lifecycle"
)

// terminateGrace is how long a child gets between SIGHUP and SIGKILL.
const terminateGrace = 3 * time.Second

// outputLimit caps the retained output of a child so a chatty command
// cannot grow memory without bound.
const outputLimit = 256 * 1024

// EventType enumerates directory change notifications.
type EventType string

const (
	EventChildAdded   EventType = "child-added"
	EventChildRemoved EventType = "child-removed"
	EventChildOutput  EventType = "child-output"
)

// Event is one directory change notification.
type Event struct {
	Type     EventType
	ParentID string
	ChildID  string
}

// child is one live pty-backed session.
type child struct {
	id        string
	parentID  string
	title     string
	command   string
	createdAt time.Time

	cmd *exec.Cmd
	tty *os.File

	mu     sync.Mutex
	output []byte
	done   bool
}

// Directory owns local child sessions per parent session. It implements the
// session-directory and command-runner contracts the lifecycle manager
// consumes.
type Directory struct {
	mu       sync.Mutex
	children map[string]*child            // childID -> child
	byParent map[string][]string          // parentID -> ordered childIDs
	workdirs map[string]string            // parentID -> working directory
	notify   func(Event)

	shell string
}

var _ lifecycle.SessionDirectory = (*Directory)(nil)
var _ lifecycle.CommandRunner = (*Directory)(nil)

// NewDirectory creates an empty directory. notify may be nil.
func NewDirectory(notify func(Event)) *Directory {
	sh := os.Getenv("SHELL")
	if sh == "" {
		sh = "/bin/sh"
	}
	return &Directory{
		children: make(map[string]*child),
		byParent: make(map[string][]string),
		workdirs: make(map[string]string),
		notify:   notify,
		shell:    sh,
	}
}

func (d *Directory) emit(ev Event) {
	if d.notify != nil {
		d.notify(ev)
	}
}

// SetWorkdir records the working directory children of a parent start in.
func (d *Directory) SetWorkdir(parentID, dir string) {
	d.mu.Lock()
	d.workdirs[parentID] = dir
	d.mu.Unlock()
}

func (d *Directory) workdir(parentID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.workdirs[parentID]
}

// StartShell attaches a new interactive sub-shell to a parent session and
// returns its child session id.
func (d *Directory) StartShell(parentID string) (string, error) {
	return d.spawn(parentID, "", filepath.Base(d.shell), d.shell)
}

// RunCommand executes a fixed command string against a parent session on a
// fresh pty and returns the child session id bound to the execution. The
// command runs through the user's shell so pipelines and expansions behave
// as typed.
func (d *Directory) RunCommand(_ context.Context, parentID, command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("run command: empty command for session %s", parentID)
	}
	return d.spawn(parentID, command, command, d.shell, "-c", d.wrapCommand(parentID, command))
}

// wrapCommand prefixes the command with a cd into the parent's working
// directory. The directory is user data; it gets quoted, the command itself
// is deliberately left verbatim.
func (d *Directory) wrapCommand(parentID, command string) string {
	dir := d.workdir(parentID)
	if dir == "" {
		return command
	}
	return fmt.Sprintf("cd %s && %s", shellescape.Quote(dir), command)
}

func (d *Directory) spawn(parentID, command, title string, argv ...string) (string, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = d.workdir(parentID)
	cmd.Env = append(os.Environ(), "WORKDECK_SESSION="+parentID)

	tty, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("spawn child for session %s: %w", parentID, err)
	}

	c := &child{
		id:        uuid.NewString(),
		parentID:  parentID,
		title:     title,
		command:   command,
		createdAt: time.Now(),
		cmd:       cmd,
		tty:       tty,
	}

	d.mu.Lock()
	d.children[c.id] = c
	d.byParent[parentID] = append(d.byParent[parentID], c.id)
	d.mu.Unlock()

	go d.pump(c)
	d.emit(Event{Type: EventChildAdded, ParentID: parentID, ChildID: c.id})
	return c.id, nil
}

// pump drains the child's pty into its retained output buffer until the
// process exits.
func (d *Directory) pump(c *child) {
	buf := make([]byte, 4096)
	for {
		n, err := c.tty.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.output = append(c.output, buf[:n]...)
			if len(c.output) > outputLimit {
				c.output = c.output[len(c.output)-outputLimit:]
			}
			c.mu.Unlock()
			d.emit(Event{Type: EventChildOutput, ParentID: c.parentID, ChildID: c.id})
		}
		if err != nil {
			break
		}
	}
	_ = c.cmd.Wait()
	c.mu.Lock()
	c.done = true
	c.mu.Unlock()
}

// GetChildSessions returns a parent's live children in creation order.
func (d *Directory) GetChildSessions(parentID string) []lifecycle.ChildSession {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := d.byParent[parentID]
	out := make([]lifecycle.ChildSession, 0, len(ids))
	for _, id := range ids {
		c, ok := d.children[id]
		if !ok {
			continue
		}
		out = append(out, lifecycle.ChildSession{
			ID:        c.id,
			Title:     c.title,
			CreatedAt: c.createdAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Output returns the retained output of a child session.
func (d *Directory) Output(childID string) (string, bool) {
	d.mu.Lock()
	c, ok := d.children[childID]
	d.mu.Unlock()
	if !ok {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.output), true
}

// Running reports whether a child's process is still alive.
func (d *Directory) Running(childID string) bool {
	d.mu.Lock()
	c, ok := d.children[childID]
	d.mu.Unlock()
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.done
}

// Write sends input bytes to a child's pty.
func (d *Directory) Write(childID string, p []byte) error {
	d.mu.Lock()
	c, ok := d.children[childID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("write: unknown child %s", childID)
	}
	_, err := c.tty.Write(p)
	return err
}

// Resize adjusts a child's pty geometry.
func (d *Directory) Resize(childID string, cols, rows int) error {
	d.mu.Lock()
	c, ok := d.children[childID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("resize: unknown child %s", childID)
	}
	return pty.Setsize(c.tty, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// TerminateSession ends a child session: SIGHUP first, SIGKILL after the
// grace window, then the child is dropped from the directory. Terminating
// an unknown child is a logged no-op.
func (d *Directory) TerminateSession(childID string) error {
	d.mu.Lock()
	c, ok := d.children[childID]
	if ok {
		delete(d.children, childID)
		siblings := d.byParent[c.parentID]
		for i, id := range siblings {
			if id == childID {
				d.byParent[c.parentID] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	d.mu.Unlock()

	if !ok {
		log.Printf("shell: terminate unknown child %s", childID)
		return nil
	}

	if c.cmd.Process != nil {
		pid := c.cmd.Process.Pid
		_ = unix.Kill(pid, unix.SIGHUP)
		go func() {
			time.Sleep(terminateGrace)
			c.mu.Lock()
			done := c.done
			c.mu.Unlock()
			if !done {
				_ = unix.Kill(pid, unix.SIGKILL)
			}
		}()
	}
	_ = c.tty.Close()

	d.emit(Event{Type: EventChildRemoved, ParentID: c.parentID, ChildID: childID})
	return nil
}

// Close terminates every child.
func (d *Directory) Close() {
	d.mu.Lock()
	var ids []string
	for id := range d.children {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		_ = d.TerminateSession(id)
	}
}
