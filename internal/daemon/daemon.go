package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sahayog-network/sahayog/internal/api"
	"github.com/sahayog-network/sahayog/internal/app/cluster"
	"github.com/sahayog-network/sahayog/internal/app/scoring"
	"github.com/sahayog-network/sahayog/internal/domain"
	"github.com/sahayog-network/sahayog/internal/infra/graph"
	"github.com/sahayog-network/sahayog/internal/infra/sqlite"
)

// Daemon owns the wired components of one sahayog process.
type Daemon struct {
	cfg Config

	db       *sqlite.DB
	graph    domain.EndorsementGraph
	neo      *graph.Neo4jGraph // nil when the in-memory graph is used
	Engine   *scoring.Engine
	Clusters *cluster.Service
	server   *http.Server
	sweeper  *Sweeper
}

// New opens storage, connects the graph backend, and wires the services.
func New(ctx context.Context, cfg Config) (*Daemon, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	d := &Daemon{cfg: cfg, db: db}

	if cfg.Graph.URI != "" {
		neo, err := graph.NewNeo4jGraph(ctx, graph.Options{
			URI:      cfg.Graph.URI,
			Database: cfg.Graph.Database,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect graph: %w", err)
		}
		d.neo = neo
		d.graph = neo
		log.Printf("[daemon] endorsement graph: neo4j at %s", cfg.Graph.URI)
	} else {
		d.graph = graph.NewMemoryGraph()
		log.Printf("[daemon] endorsement graph: in-memory")
	}

	d.Engine = scoring.NewEngine(db, db, d.graph, cfg.Scoring)
	d.Clusters = cluster.NewService(db, db, db, cfg.Cluster)

	scores := &api.ScoreAPI{
		Engine: d.Engine,
		Snaps:  db,
		Events: db,
		Graph:  graph.NewReader(d.graph, graph.DefaultMaxDepth),
	}
	clusters := &api.ClusterAPI{Service: d.Clusters}
	srv := api.NewServer(scores, clusters)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}
	d.server = &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: srv.Handler(),
	}

	if cfg.Sweep.Enabled {
		d.sweeper = NewSweeper(d.Engine, d.Clusters, cfg.Sweep)
	}
	return d, nil
}

// Run serves HTTP and the periodic sweep until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s", d.cfg.API.Addr())
		if err := d.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if d.sweeper != nil {
		go d.sweeper.Run(ctx)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[daemon] shutdown: %v", err)
	}
	return d.Close(shutdownCtx)
}

// Close releases storage and graph connections.
func (d *Daemon) Close(ctx context.Context) error {
	var firstErr error
	if d.neo != nil {
		if err := d.neo.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if err := d.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// DB exposes the storage layer for the CLI's direct-access commands.
func (d *Daemon) DB() *sqlite.DB { return d.db }
