// Package server is the HTTP console: it renders dialogs for catalog nodes
// and answers the SQL preview endpoint with an echo of the submitted model.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-adminform/internal/catalog"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/orchestrator"
	"github.com/goliatone/go-adminform/pkg/schema"
)

// DefaultServerVersion is reported for servers when no probe is configured.
const DefaultServerVersion = 160000

const reloadDebounce = 100 * time.Millisecond

// ServerInfoFunc looks up the connected server registered under id.
type ServerInfoFunc func(ctx context.Context, id string) (node.ServerInfo, error)

// Config holds the server dependencies.
type Config struct {
	Addr       string
	SchemasDir string
	OpenAPI    []string
	Watch      bool
	Logger     *slog.Logger
	// Options are applied to every orchestrator the server builds; the
	// catalog is supplied by the server.
	Options    []orchestrator.Option
	ServerInfo ServerInfoFunc
	// Prepare, when set, runs on every freshly loaded catalog before it is
	// put in service.
	Prepare func(ctx context.Context, c *schema.Catalog) error
}

// Server serves dialogs over HTTP. The catalog is reloaded when schema
// documents change.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	catalog *schema.Catalog
	orch    *orchestrator.Orchestrator
}

// New loads the catalog and builds the orchestrator.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the schema documents and swaps the orchestrator. On error
// the previous catalog stays in service.
func (s *Server) Reload(ctx context.Context) error {
	c, err := catalog.Load(s.cfg.SchemasDir)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := catalog.Import(ctx, c, s.logger, s.cfg.OpenAPI...); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if s.cfg.Prepare != nil {
		if err := s.cfg.Prepare(ctx, c); err != nil {
			return fmt.Errorf("server: prepare catalog: %w", err)
		}
	}
	opts := append(append([]orchestrator.Option(nil), s.cfg.Options...),
		orchestrator.WithCatalog(c),
		orchestrator.WithLogger(s.logger),
	)
	orch := orchestrator.New(opts...)

	s.mu.Lock()
	s.catalog, s.orch = c, orch
	s.mu.Unlock()
	s.logger.Info("server: catalog loaded", "nodes", len(c.NodeTypes()), "models", len(c.ModelNames()))
	return nil
}

func (s *Server) current() (*schema.Catalog, *orchestrator.Orchestrator) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.orch
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	r.Get("/healthz", s.handleHealth)
	r.Get("/nodes", s.handleNodes)
	r.Get("/nodes/{type}/dialog", s.handleDialog)
	r.Get("/browser/{type}/msql/*", s.handleMSQL)
	return r
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server: listening", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler: middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
			NoColor: true,
		})(s.Handler()),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.SchemasDir != "" {
		eg.Go(func() error {
			return s.watch(egctx, nil)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watch reloads the catalog when a schema document below the schemas
// directory is written. ready, when set, is called once watching started.
func (s *Server) watch(ctx context.Context, ready func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("server: watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.cfg.SchemasDir); err != nil {
		s.logger.Error("server: watch schemas directory", "dir", s.cfg.SchemasDir, "error", err)
	}
	if ready != nil {
		ready()
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				// Documents may have landed before the watch was added.
				if err := watchDirRecursive(watcher, event.Name); err != nil {
					s.logger.Error("server: watch new directory", "dir", event.Name, "error", err)
				}
			} else {
				switch filepath.Ext(event.Name) {
				case ".yaml", ".yml", ".json":
				default:
					continue
				}
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(reloadDebounce, func() {
				s.logger.Debug("server: schema changed, reloading", "file", name)
				if err := s.Reload(ctx); err != nil {
					s.logger.Error("server: reload failed", "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("server: watcher error", "error", err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
