package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/mentor/internal/gateway"
	"github.com/pavelanni/mentor/internal/handler"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/knowledge"
	"github.com/pavelanni/mentor/internal/live"
	"github.com/pavelanni/mentor/internal/llm"
	"github.com/pavelanni/mentor/internal/llm/prompts"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/pages"
	"github.com/pavelanni/mentor/internal/router"
	"github.com/pavelanni/mentor/internal/state"
	"github.com/pavelanni/mentor/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentor",
		Short: "Personal learning companion backed by an AI tutoring service",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), resetCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "mentor.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("backend-url", "http://127.0.0.1:5003/", "Tutoring backend base URL")
	f.Duration("backend-timeout", 5*time.Minute, "Timeout for one backend call (0 = none)")
	f.String("llm-url", "", "OpenAI-compatible API base URL for tutor chat (empty = use the backend)")
	f.String("llm-key", "ollama", "API key for the LLM endpoint")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "UI language (en, ko)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /mentor)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("access-password", "", "Require this password to use the UI (or set MENTOR_ACCESS_PASSWORD)")
	f.Duration("autosave-interval", time.Minute, "How often state is flushed to the database")
	f.Duration("motivation-interval", knowledge.DefaultMotivationInterval, "How often a motivational message is shown while studying")
	f.Int("quiz-single", gateway.DefaultQuizCounts.SingleChoice, "Single-choice questions per document")
	f.Int("quiz-multiple", gateway.DefaultQuizCounts.MultipleChoice, "Multiple-choice questions per document")
	f.Int("quiz-true-false", gateway.DefaultQuizCounts.TrueFalse, "True/false questions per document")
	f.Int("quiz-short", gateway.DefaultQuizCounts.ShortAnswer, "Short-answer questions per document")
	f.StringSlice("origin", nil, "Extra origins allowed to open the live websocket")
	addCommonFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export learning progress as JSON",
		RunE:  runExport,
	}
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)
	return cmd
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all saved learning state",
		RunE:  runReset,
	}
	cmd.Flags().Bool("yes", false, "Do not ask for confirmation")
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("MENTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mentor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mentor")
	v.AddConfigPath("/etc/mentor")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch lang {
	case "en", "ko":
		return lang
	}
	slog.Warn("unsupported lang, using en", "lang", lang)
	return "en"
}

func quizCounts(v *viper.Viper) gateway.QuizCounts {
	q := gateway.QuizCounts{
		SingleChoice:   v.GetInt("quiz-single"),
		MultipleChoice: v.GetInt("quiz-multiple"),
		TrueFalse:      v.GetInt("quiz-true-false"),
		ShortAnswer:    v.GetInt("quiz-short"),
	}
	if q.SingleChoice < 0 || q.MultipleChoice < 0 || q.TrueFalse < 0 || q.ShortAnswer < 0 ||
		q.SingleChoice+q.MultipleChoice+q.TrueFalse+q.ShortAnswer == 0 {
		slog.Warn("invalid quiz counts, using defaults", "counts", q)
		return gateway.DefaultQuizCounts
	}
	return q
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	requireLogin, err := seedAccessPassword(db, v.GetString("access-password"))
	if err != nil {
		return fmt.Errorf("seed access password: %w", err)
	}

	lang := normalizeLang(v.GetString("lang"))
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var backend gateway.Backend = gateway.New(v.GetString("backend-url"), v.GetDuration("backend-timeout"))
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		if err := prompts.Load(prompts.Templates); err != nil {
			return fmt.Errorf("load prompts: %w", err)
		}
		tutor := llm.New(backend, llmURL, v.GetString("llm-key"), v.GetString("llm-model"), lang)
		if err := tutor.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		backend = tutor
	}

	stateManager := state.New(db)
	stateManager.Load()

	mount := page.NewMount()
	rt := router.New(stateManager, mount)
	deps := pages.Deps{Store: stateManager, Backend: backend, Nav: rt}

	interval := v.GetDuration("motivation-interval")
	if interval <= 0 {
		slog.Warn("invalid motivation-interval, using default", "interval", interval)
		interval = knowledge.DefaultMotivationInterval
	}
	controller := knowledge.New(stateManager, backend, rt,
		knowledge.WithMotivationInterval(interval),
		knowledge.WithQuizCounts(quizCounts(v)),
	)

	routes := []struct {
		name  string
		label string
		page  page.Page
	}{
		{pages.RouteOnboarding, "NavOnboarding", pages.NewOnboarding(deps)},
		{pages.RouteSkillGap, "NavSkillGap", pages.NewSkillGap(deps)},
		{pages.RouteLearningPath, "NavLearningPath", pages.NewLearningPath(deps)},
		{knowledge.Route, "NavResumeLearning", controller},
		{pages.RouteMyProfile, "NavMyProfile", pages.NewProfile(deps)},
		{pages.RouteGoals, "NavGoals", pages.NewGoals(deps)},
		{pages.RouteDashboard, "NavDashboard", pages.NewDashboard(deps)},
	}
	for _, r := range routes {
		rt.AddRoute(r.name, r.page)
		rt.AddNav(r.name, r.label)
	}

	hub := live.New(live.WithOriginPatterns(v.GetStringSlice("origin")...))
	detach := hub.Attach(stateManager)
	defer detach()
	mount.OnChange(hub.Notify)

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	h, err := handler.New(rt, db, hub, model.AppConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		RequireLogin:  requireLogin,
		Lang:          lang,
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server",
			"addr", addr,
			"backend_url", v.GetString("backend-url"),
			"llm_url", v.GetString("llm-url"),
			"lang", lang,
			"base_path", basePath,
			"require_login", requireLogin,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		autosave(ctx, stateManager, v.GetDuration("autosave-interval"))
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := db.CleanupExpiredSessions(); err != nil {
					slog.Warn("failed to clean up auth sessions", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	controller.Unmount()
	controller.Wait()
	stateManager.Persist()
	return err
}

// autosave flushes the snapshot every interval until ctx is done.
func autosave(ctx context.Context, s *state.Manager, interval time.Duration) {
	if interval <= 0 {
		slog.Warn("invalid autosave-interval, using 1m", "interval", interval)
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Persist()
		}
	}
}

// seedAccessPassword stores a bcrypt hash of password when one is given and
// reports whether the UI is gated.
func seedAccessPassword(db *store.Store, password string) (bool, error) {
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return false, fmt.Errorf("hash access password: %w", err)
		}
		if err := db.SetAccessPasswordHash(string(hash)); err != nil {
			return false, err
		}
		slog.Info("access password set")
	}
	hash, err := db.AccessPasswordHash()
	if err != nil {
		return false, err
	}
	return hash != "", nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	s := state.New(db)
	s.Load()
	export := model.BuildExport(s.GetState(), time.Now().UTC())

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	if !v.GetBool("yes") {
		return errors.New("reset deletes all goals and progress; pass --yes to confirm")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := state.New(db).Reset(); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	slog.Info("state reset", "db", v.GetString("db"))
	return nil
}
