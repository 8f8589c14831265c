package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/runt18/edx-ora2/internal/ai"
	"github.com/runt18/edx-ora2/internal/assessment"
	"github.com/runt18/edx-ora2/internal/fileupload"
	"github.com/runt18/edx-ora2/internal/fixture"
	"github.com/runt18/edx-ora2/internal/handler"
	"github.com/runt18/edx-ora2/internal/store"
	"github.com/runt18/edx-ora2/internal/submissions"
	"github.com/runt18/edx-ora2/internal/workflow"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ora",
		Short: "Open response assessment grading backend",
	}

	serve := serveCmd()
	root.AddCommand(seedCmd(), serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `ora --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed COURSE_ID ITEM_ID NUM_SUBMISSIONS",
		Short: "Create dummy submissions and assessments for a course item",
		Args:  cobra.ExactArgs(3),
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "ora.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the staff grading JSON API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "ora.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL for example-based grading")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("file-base-url", "", "Base URL for resolving uploaded file keys (empty disables file links)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a course item's submissions and assessments as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "ora.db", "SQLite database path")
	f.String("course-id", "", "Course identifier (required)")
	f.String("item-id", "", "Item identifier (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("course-id")
	_ = cmd.MarkFlagRequired("item-id")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

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

	v.SetEnvPrefix("ORA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("ora")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ora")
	v.AddConfigPath("/etc/ora")
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

func runSeed(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Validate before touching the database.
	numSubmissions, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("number of submissions must be an integer: %q", args[2])
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	subs := submissions.NewService(db)
	peer := assessment.NewPeerService(db)
	generator := fixture.NewGenerator(
		subs,
		peer,
		assessment.NewSelfService(db),
		workflow.NewService(db, peer),
	)

	items, err := generator.Generate(args[0], args[1], numSubmissions)
	if err != nil {
		return fmt.Errorf("create submissions: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %d submissions for %s/%s\n", len(items), args[0], args[1])
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	llmClient := ai.NewOpenAIClient(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	// Example-based grading is the only consumer of the LLM, so a dead
	// endpoint downgrades the reschedule endpoint instead of the server.
	if err := llmClient.Ping(context.Background()); err != nil {
		slog.Warn("LLM endpoint unreachable, example-based grading will fail until it returns",
			"url", v.GetString("llm-url"), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	subs := submissions.NewService(db)
	peer := assessment.NewPeerService(db)
	self := assessment.NewSelfService(db)
	staff := assessment.NewStaffService(db)
	wf := workflow.NewService(db, peer)
	aiSvc := ai.NewService(db, llmClient)
	files := fileupload.NewBaseURLService(v.GetString("file-base-url"))

	h := handler.New(subs, peer, self, staff, wf, aiSvc, files)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"llm_url", v.GetString("llm-url"),
		"llm_model", v.GetString("llm-model"),
		"file_base_url", v.GetString("file-base-url"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.BuildExport(v.GetString("course-id"), v.GetString("item-id"))
	if err != nil {
		return fmt.Errorf("build export: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
