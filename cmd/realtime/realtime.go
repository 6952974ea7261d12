// Package realtime implements the realtime command: it runs the analysis
// engine against chunk events read from stdin, one JSON object per line.
// It doubles as the local smoke-test driver for the engine; production
// deployments sit the engine behind an API layer instead.
package realtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairlens/fairlens-go/internal/conf"
	"github.com/fairlens/fairlens-go/internal/datastore"
	"github.com/fairlens/fairlens-go/internal/detection"
	"github.com/fairlens/fairlens-go/internal/errors"
	"github.com/fairlens/fairlens-go/internal/feedback"
	"github.com/fairlens/fairlens-go/internal/logging"
	"github.com/fairlens/fairlens-go/internal/memory"
	"github.com/fairlens/fairlens-go/internal/observability"
	"github.com/fairlens/fairlens-go/internal/observability/metrics"
	"github.com/fairlens/fairlens-go/internal/scorer"
	"github.com/fairlens/fairlens-go/internal/session"
)

// Command creates the realtime analysis command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Analyze conversation streams in realtime mode",
		Long:  "Read conversation chunk events from stdin and run continuous bias monitoring over them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRealtime(settings)
		},
	}
	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().DurationVar(&settings.Realtime.Analysis.Interval, "interval",
		viper.GetDuration("realtime.analysis.interval"), "Comprehensive analysis interval per session")
	cmd.Flags().IntVar(&settings.Realtime.Analysis.MaxConcurrent, "maxconcurrent",
		viper.GetInt("realtime.analysis.maxconcurrent"), "Maximum concurrent comprehensive analyses")
	cmd.Flags().IntVar(&settings.Realtime.Analysis.BufferSize, "buffersize",
		viper.GetInt("realtime.analysis.buffersize"), "Per-session conversation buffer capacity")
	cmd.Flags().BoolVar(&settings.Output.SQLite.Enabled, "sqlite",
		viper.GetBool("output.sqlite.enabled"), "Persist feedback and analyses to SQLite")
	cmd.Flags().StringVar(&settings.Output.SQLite.Path, "dbpath",
		viper.GetString("output.sqlite.path"), "Path to the SQLite database file")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics",
		viper.GetBool("metrics.enabled"), "Expose Prometheus metrics")
}

// inputEvent is one line of driver input.
type inputEvent struct {
	Type           string            `json:"type,omitempty"` // chunk (default), feedback, stop
	SessionID      string            `json:"session_id"`
	OwnerID        string            `json:"owner_id,omitempty"`
	Speaker        string            `json:"speaker,omitempty"`
	Content        string            `json:"content,omitempty"`
	Demographics   map[string]string `json:"demographics,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	OriginalScore  float64           `json:"original_score,omitempty"`
	CorrectedScore *float64          `json:"corrected_score,omitempty"`
}

func runRealtime(settings *conf.Settings) error {
	log := logging.ForService("realtime")

	var engineMetrics *observability.Metrics
	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		engineMetrics = m
		mux := http.NewServeMux()
		m.RegisterHandlers(mux)
		go func() {
			if err := http.ListenAndServe(settings.Metrics.Listen, mux); err != nil {
				log.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close datastore", "error", err)
		}
	}()

	em := engineMetricsOrNil(engineMetrics)
	queue := memory.NewUpdateQueue(settings.Realtime.QueueSize, store, em)
	config := detection.NewConfig(&settings.Realtime.Detection)
	dispatcher := detection.NewDispatcher(em)
	processor := feedback.NewProcessor(&settings.Realtime.Detection, config, queue, em)

	lexicon := scorer.NewLexiconScorer(scorer.DefaultLexicon)
	quick := scorer.NewCachedQuickScorer(lexicon, settings.Realtime.Monitor.CacheTTL)

	registry := session.NewRegistry(session.Options{
		Settings:      settings,
		Quick:         quick,
		Comprehensive: lexicon.Comprehensive(),
		Config:        config,
		Dispatcher:    dispatcher,
		Queue:         queue,
		Feedback:      processor,
		Metrics:       em,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go readLines(lines)

	log.Info("realtime analysis started, reading chunk events from stdin")
loop:
	for {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			handleEvent(registry, log, line)
		}
	}

	registry.Shutdown()
	if err := queue.Shutdown(5 * time.Second); err != nil {
		log.Warn("memory queue did not drain before shutdown", "error", err)
	}
	return nil
}

func engineMetricsOrNil(m *observability.Metrics) *metrics.EngineMetrics {
	if m == nil {
		return nil
	}
	return m.Engine
}

func readLines(out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			out <- line
		}
	}
}

func handleEvent(registry *session.Registry, log *slog.Logger, line string) {
	var ev inputEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		log.Error("skipping malformed input line", "error", err)
		return
	}
	if ev.SessionID == "" {
		log.Error("skipping event without session_id")
		return
	}

	switch ev.Type {
	case "", "chunk":
		if _, err := registry.Get(ev.SessionID); err != nil {
			if _, err := registry.Start(ev.SessionID, ev.OwnerID, ev.Demographics); err != nil && !errors.IsConflict(err) {
				log.Error("failed to start session", "session_id", ev.SessionID, "error", err)
				return
			}
		}
		registry.Ingest(ev.SessionID, session.Chunk{
			Timestamp: time.Now(),
			Speaker:   ev.Speaker,
			Content:   ev.Content,
			Metadata:  ev.Metadata,
		})
	case "feedback":
		if err := registry.SubmitFeedback(ev.SessionID, ev.OriginalScore, ev.CorrectedScore); err != nil {
			log.Error("feedback rejected", "session_id", ev.SessionID, "error", err)
		}
	case "stop":
		final, err := registry.Stop(ev.SessionID)
		if err != nil {
			log.Error("stop failed", "session_id", ev.SessionID, "error", err)
			return
		}
		out, _ := json.Marshal(final)
		fmt.Println(string(out))
	default:
		log.Error("unknown event type", "type", ev.Type)
	}
}
