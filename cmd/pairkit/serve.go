package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/pairkit/internal/conversation"
	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/lsp"
	"github.com/joss/pairkit/internal/metrics"
	"github.com/joss/pairkit/internal/prefs"
	"github.com/joss/pairkit/internal/render"
	"github.com/joss/pairkit/internal/runtime"
	"github.com/joss/pairkit/internal/tool"
	"github.com/joss/pairkit/internal/watch"
	"github.com/joss/pairkit/internal/workspace"
)

func serveCmd() *cobra.Command {
	var wf workspaceFlags
	var metricsAddr string
	var noInput bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to the language server and handle its tool calls",
		Long: `Start the language server for the workspace, advertise the client tools
and handle tool calls until interrupted.

Changes under the workspace folders are forwarded to the server. Each line
read from stdin is sent as a chat request; the first starts a conversation
and later lines add turns. Lines starting with / are commands:
  /new     start a new conversation with the next line
  /cancel  cancel the turn in flight
  /rounds  show the agent rounds of the last turn
  /quit    stop serving`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			ws, err := wf.info()
			if err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if noInput {
				in = nil
			}
			return serve(cmd.Context(), ws, in, cmd.OutOrStdout())
		},
	}
	wf.register(cmd, false)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Do not read chat requests from stdin")
	return cmd
}

// server holds the components of one serve process
type server struct {
	ws       domain.WorkspaceInfo
	resolver *workspace.Resolver
	prefs    *prefs.Prefs
	manager  *conversation.Manager
	pool     *lsp.Pool
	out      io.Writer
	log      *logging.Logger

	mu       sync.Mutex
	convID   string
	lastTurn conversation.Turn
}

func serve(parent context.Context, ws domain.WorkspaceInfo, in io.Reader, out io.Writer) error {
	if cfg.LanguageServer.Command == "" {
		return errors.New("no language server configured (set languageServer.command or PAIRKIT_LS_COMMAND)")
	}

	sd := runtime.NewShutdownManager(parent, runtime.DefaultShutdownTimeout)
	sd.ListenForSignals()
	ctx := sd.Context()

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	sd.Register("ledger", func(context.Context) error { return l.Close() })

	s := &server{
		ws:       ws,
		resolver: newResolver(cfg),
		prefs:    newPrefs(cfg),
		out:      out,
		log:      logging.New("serve").WithWorkspace(ws.Key()),
	}
	folder := history.NewFolder()
	registry := tool.DefaultRegistry(newRevealer(cfg))

	s.pool = lsp.NewPool(func(dialCtx context.Context, ws domain.WorkspaceInfo) (*lsp.Client, error) {
		projectPath := workspace.Path(ws.ProjectURL)
		c, err := lsp.Dial(ctx, cfg.LanguageServer.Command, cfg.LanguageServer.Args, lsp.Options{
			Tools:         registry,
			Environment:   tool.NewEnvironment(projectPath, l),
			History:       folder.Updater(),
			OnProgressEnd: s.progressEnded,
			ClientName:    "pairkit",
			ClientVersion: version,
		})
		if err != nil {
			return nil, err
		}
		if err := c.Initialize(dialCtx, projectPath, s.resolver.Folders(ws)); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	})
	sd.Register("language server", func(context.Context) error { return s.pool.Close() })

	s.manager = conversation.NewManager(s.pool, s.resolver,
		conversation.WithPrefs(s.prefs),
		conversation.WithHistory(folder),
	)

	if _, err := s.pool.Client(ctx, ws); err != nil {
		_ = sd.Shutdown()
		return fmt.Errorf("start language server: %w", err)
	}
	if _, err := s.manager.Models(ctx, ws); err != nil {
		s.log.Warn("serve.models_failed", nil, err)
	}

	if err := s.startWatchers(ctx, sd); err != nil {
		_ = sd.Shutdown()
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		errc := srv.Start()
		go func() {
			if err, ok := <-errc; ok && err != nil {
				s.log.Error("serve.metrics_failed", map[string]any{"addr": cfg.MetricsAddr}, err)
			}
		}()
		sd.Register("metrics", srv.Stop)
		s.log.Info("serve.metrics", map[string]any{"addr": cfg.MetricsAddr})
	}

	s.log.Info("serve.ready", map[string]any{"tools": len(registry.All())})
	fmt.Fprintf(out, "pairkit serving %s\n", workspace.Path(ws.Key()))

	if in != nil {
		go func() {
			s.readRequests(ctx, in)
			_ = sd.Shutdown()
		}()
	}

	<-ctx.Done()
	return sd.Shutdown()
}

// startWatchers watches every workspace folder and forwards batches to the
// backend. The watchers stop before the pool closes.
func (s *server) startWatchers(ctx context.Context, sd *runtime.ShutdownManager) error {
	wctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	var watchers []*watch.Watcher

	notify := func(ctx context.Context, ev domain.WatchedFilesEvent) error {
		return s.manager.NotifyDidChangeWatchedFiles(ctx, ev, s.ws)
	}
	for _, f := range s.resolver.Folders(s.ws) {
		w, err := watch.New(workspace.Path(f.URI), notify, watch.Options{
			Debounce: cfg.WatchDebounce.Std(),
			Skip:     s.resolver.ShouldSkip,
		})
		if err != nil {
			cancel()
			for _, w := range watchers {
				w.Close()
			}
			return fmt.Errorf("watch %s: %w", f.Name, err)
		}
		watchers = append(watchers, w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("serve.watch_failed", map[string]any{"folder": f.Name}, err)
			}
		}()
	}

	sd.Register("watchers", func(context.Context) error {
		cancel()
		wg.Wait()
		var errs []error
		for _, w := range watchers {
			errs = append(errs, w.Close())
		}
		return errors.Join(errs...)
	})
	return nil
}

func (s *server) progressEnded(token string) {
	if !s.manager.CompleteProgress(token) {
		return
	}
	s.mu.Lock()
	turnID := s.lastTurn.ID
	s.mu.Unlock()
	fmt.Fprintf(s.out, "turn %s complete\n", turnID)
}

func (s *server) readRequests(ctx context.Context, in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := s.handleLine(ctx, line); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *server) handleLine(ctx context.Context, line string) error {
	s.mu.Lock()
	convID, last := s.convID, s.lastTurn
	s.mu.Unlock()

	switch line {
	case "/quit":
		return io.EOF
	case "/new":
		if convID != "" {
			_ = s.manager.Terminate(convID)
		}
		s.mu.Lock()
		s.convID, s.lastTurn = "", conversation.Turn{}
		s.mu.Unlock()
		return nil
	case "/cancel":
		if last.WorkDoneToken == "" {
			return errors.New("no turn in flight")
		}
		return s.manager.CancelProgress(ctx, last.WorkDoneToken, s.ws)
	case "/rounds":
		fmt.Fprint(s.out, render.New(pretty).Rounds(s.manager.Rounds(last.ID))+"\n")
		return nil
	}

	req := domain.ConversationRequest{
		Content:    line,
		References: s.resolver.Files(ctx, s.ws),
		AgentMode:  s.prefs.AgentModeEnabled(),
	}

	rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var turn conversation.Turn
	if convID == "" {
		conv, err := s.manager.CreateConversation(rctx, req, s.ws)
		if err != nil {
			return err
		}
		convID, turn = conv.ID, conv.Turns[0]
	} else {
		t, err := s.manager.CreateTurn(rctx, convID, req, s.ws)
		if err != nil {
			return err
		}
		turn = *t
	}

	s.mu.Lock()
	s.convID, s.lastTurn = convID, turn
	s.mu.Unlock()
	fmt.Fprintf(s.out, "turn %s started in conversation %s\n", turn.ID, convID)
	return nil
}
