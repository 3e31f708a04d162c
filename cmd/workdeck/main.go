package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/asheshgoplani/workdeck/internal/config"
	"github.com/asheshgoplani/workdeck/internal/engine"
	"github.com/asheshgoplani/workdeck/internal/files"
	"github.com/asheshgoplani/workdeck/internal/lifecycle"
	"github.com/asheshgoplani/workdeck/internal/logging"
	"github.com/asheshgoplani/workdeck/internal/remote"
	"github.com/asheshgoplani/workdeck/internal/shell"
	"github.com/asheshgoplani/workdeck/internal/statestore"
	"github.com/asheshgoplani/workdeck/internal/ui"
)

const (
	minCols = 40
	minRows = 10
)

func main() {
	fs := flag.NewFlagSet("workdeck", flag.ExitOnError)
	workdir := fs.String("workdir", "", "Workspace root (defaults to the current directory)")
	sessionID := fs.String("session", "", "Session id to open (defaults to the workspace directory name)")
	configDir := fs.String("config-dir", config.Dir(), "Config and state directory")

	fs.Usage = func() {
		fmt.Println("Usage: workdeck [options]")
		fmt.Println()
		fmt.Println("Open the workdeck terminal workspace client.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  workdeck")
		fmt.Println("  workdeck --workdir ~/src/app --session app")
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		os.Exit(1)
	}

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && (w < minCols || h < minRows) {
		fmt.Fprintf(os.Stderr, "Terminal too small: %dx%d (need at least %dx%d)\n", w, h, minCols, minRows)
		os.Exit(1)
	}

	if err := os.MkdirAll(*configDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create %s: %v\n", *configDir, err)
		os.Exit(1)
	}
	closeLog := logging.Setup(*configDir)
	defer func() { _ = closeLog() }()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	keymap, err := config.LoadKeymap(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// send is swapped for the live program before anything can fire.
	send := func(tea.Msg) {}

	dbPath := filepath.Join(*configDir, "state.db")
	store, err := statestore.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open state store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Another workdeck window writing shared state triggers a repaint here.
	watcher, err := statestore.NewWatcher(dbPath, func() {
		send(ui.ViewsChangedMsg{})
	})
	if err != nil {
		log.Printf("workdeck: state watcher disabled: %v", err)
	} else {
		go watcher.Start()
		defer watcher.Close()
	}

	root := *workdir
	if root == "" {
		root = cfg.Workspace.Root
	}
	session := *sessionID
	if session == "" {
		session = filepath.Base(root)
	}

	dir := shell.NewDirectory(func(ev shell.Event) {
		send(ui.ViewsChangedMsg{SessionID: ev.ParentID})
	})
	defer dir.Close()

	var client *remote.Client
	if cfg.Remote.BaseURL != "" {
		client, err = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	theme := ui.ThemePayload(cfg.UI.Theme)
	ecfg := engine.Config{
		StateStore:  store,
		Directory:   dir,
		Lister:      files.NewLister(root),
		CurrentUser: cfg.Workspace.User,
		Keymap:      keymap,
		Notify: func(n engine.Notification) {
			send(ui.NotificationMsg(n))
		},
		OnContent: func(c lifecycle.Content) {
			send(ui.ContentMsg(c))
		},
		OnViewsChanged: func(id string) {
			send(ui.ViewsChangedMsg{SessionID: id})
		},
		Theme: func() *lifecycle.ThemePayload { return theme },
	}
	if client != nil {
		ecfg.Generator = client
		ecfg.NoteStore = client
		ecfg.Links = client
		ecfg.OrderStore = client
	}
	eng := engine.New(ecfg)
	defer eng.Shutdown()

	deck := ui.NewDeck(ui.Config{
		Engine: eng,
		Output: dir.Output,
		Theme:  cfg.UI.Theme,
	})
	p := tea.NewProgram(deck, tea.WithAltScreen())
	send = func(msg tea.Msg) { p.Send(msg) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		p.Quit()
	}()

	go func() {
		eng.AddSession(session, engine.SessionOptions{
			Workdir:   root,
			LocalOnly: client == nil,
		})
		eng.SwitchToSession(session)

		if client != nil {
			feed := client.NewEventFeed(func(ev remote.Event) {
				eng.HandleEvent(ev)
				send(ui.ViewsChangedMsg{SessionID: ev.SessionID})
			})
			feed.Run(ctx)
		}
	}()

	if _, err := p.Run(); err != nil {
		log.Printf("workdeck: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
