// Command livetext pushes lines typed in the terminal to every browser that
// has the served page open.
//
// Two listeners run side by side: a plain HTTP server answering every request
// with the page, and a WebSocket server the page connects back to. Ctrl-C
// stops both; open browser connections are dropped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"livetext/internal/config"
	"livetext/internal/console"
	"livetext/internal/hub"
	"livetext/internal/listener"
	"livetext/internal/logging"
	"livetext/internal/metrics"
	"livetext/internal/page"
)

const shutdownTimeout = 5 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nAn unexpected error occurred: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		var pe *panicError
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "\nAn unexpected error occurred: %v\n%s", pe.value, pe.stack)
			os.Exit(1)
		}
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

// panicError carries a panic recovered on a background goroutine back to
// main, which reports it the same way as a panic on its own stack.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// goSafe runs fn on g, returning a panic in fn as a *panicError.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{value: r, stack: debug.Stack()}
			}
		}()
		return fn()
	})
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

type listeners struct {
	page      net.Listener
	broadcast net.Listener
	metrics   net.Listener
}

// openListeners binds every port up front so a taken port fails startup
// before anything is served.
func openListeners(ctx context.Context, cfg *config.Config) (*listeners, error) {
	var ls listeners
	var err error

	if ls.page, err = listener.Listen(ctx, cfg.HTTPAddr(), true); err != nil {
		return nil, err
	}
	if ls.broadcast, err = listener.Listen(ctx, cfg.BroadcastAddr(), false); err != nil {
		_ = ls.page.Close()
		return nil, err
	}
	if addr := cfg.MetricsAddr(); addr != "" {
		if ls.metrics, err = listener.Listen(ctx, addr, true); err != nil {
			_ = ls.page.Close()
			_ = ls.broadcast.Close()
			return nil, err
		}
	}
	return &ls, nil
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	pageSrv, err := page.NewServer(cfg.SocketURL())
	if err != nil {
		return err
	}

	slog.Info("Starting servers...")
	ls, err := openListeners(ctx, cfg)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	hubMetrics := metrics.NewHubMetrics(reg)
	clock := clockwork.NewRealClock()

	clients := hub.NewClientManager(hubMetrics)
	broadcastSrv := hub.NewServer(clients, hub.ServerOptions{
		CheckOrigin:  hub.NewCheckOrigin(cfg.BroadcastHost),
		WriteTimeout: cfg.WriteTimeout,
		Clock:        clock,
	})
	broadcaster := hub.NewBroadcaster(clients, clock, hubMetrics)

	loop := console.NewLoop(in, out, broadcaster, console.Options{
		Prompt:         cfg.Prompt,
		SendEmptyLines: cfg.SendEmptyLines,
	})

	var metricsSrv *metrics.Server
	if ls.metrics != nil {
		metricsSrv = metrics.NewServer(reg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	goSafe(g, func() error { return pageSrv.Serve(ls.page) })
	goSafe(g, func() error { return broadcastSrv.Serve(ls.broadcast) })
	if metricsSrv != nil {
		goSafe(g, func() error { return metricsSrv.Serve(ls.metrics) })
	}

	goSafe(g, func() error {
		// end of operator input stops the whole process
		defer cancel()
		fmt.Fprintln(out, "--- Ready to send text to your browser ---")
		return loop.Run(gctx)
	})

	goSafe(g, func() error {
		<-gctx.Done()
		fmt.Fprintln(out, "\nServer is shutting down.")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errs := []error{pageSrv.Shutdown(shutdownCtx), broadcastSrv.Shutdown(shutdownCtx)}
		if metricsSrv != nil {
			errs = append(errs, metricsSrv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
