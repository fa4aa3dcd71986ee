package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/engine"
	"github.com/zen-systems/askroute/pkg/feedback"
	"github.com/zen-systems/askroute/pkg/knowledge"
	"github.com/zen-systems/askroute/pkg/router"
	"github.com/zen-systems/askroute/pkg/tool"
)

var (
	engineFile  string
	mockFlag    bool
	verboseFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "askroute",
		Short: "Question-answering engine with adaptive routing and quality control",
		Long: `Askroute classifies each question into a multi-dimensional profile,
	routes it through the best-scoring execution plan, runs the plan with
	bounded parallelism across model backends and tools, validates the answer,
	and retries with an improved plan when quality checks fail.`,
	}

	rootCmd.PersistentFlags().StringVar(&engineFile, "engine-config", "", "path to engine tuning file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "use the mock backend even when API keys are configured")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log engine internals to stderr")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			en, cleanup, err := buildEngine(cfg, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			final, err := en.Answer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				data, err := json.MarshalIndent(final, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			printFinal(final)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the result as JSON")
	return cmd
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive question loop",
		Long: `Starts an interactive session. Each answered exchange is stored in the
	in-memory knowledge index, so follow-up questions can retrieve earlier
	answers as context. Type "exit" or press Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			index := knowledge.NewMemoryIndex()
			en, cleanup, err := buildEngine(cfg, index)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println("askroute interactive session. Type a question, or \"exit\" to leave.")
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 64*1024), 64*1024)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					return nil
				}

				final, err := en.Answer(cmd.Context(), question)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				printFinal(final)
				index.Store(knowledge.Entry{
					Content:   "Q: " + question + "\nA: " + final.Text,
					Kind:      "conversation",
					Timestamp: time.Now(),
				})
			}
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the route templates and their planning figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TEMPLATE\tPRIORITY\tBUDGET\tPARALLEL\tQUALITY\tCEILING")
			for _, t := range router.New(cfg.Engine).Templates() {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%.1f\t%d\n",
					t.Name, t.Priority, t.Budget, t.MaxParallel, t.Quality, t.Ceiling)
			}
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	var resolveFlag bool
	var validateFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog, backends, and aliases",
		Long: `Lists the configured model catalog with capability ranges and backend
	key status.

	Use --resolve to show aliases and what they resolve to.
	Use --validate to check every catalog entry against the alias registry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			aliases, _ := config.LoadAliasesWithFallback("configs/models.yaml")
			if aliases == nil || len(aliases.ListAliases()) == 0 {
				aliases = config.DefaultAliases()
			}

			if resolveFlag {
				return showAliases(aliases)
			}
			if validateFlag {
				return validateCatalog(aliases, cfg.Engine)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tBACKEND\tCAPABILITY\tSPEED\tQUALITY\tSTATUS")
			for _, m := range cfg.Engine.Models {
				status := "no key"
				if cfg.HasBackend(m.Backend) || m.Backend == "mock" {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%d-%d\t%d\t%d\t%s\n",
					m.Name, m.Backend, m.CapabilityMin, m.CapabilityMax,
					m.SpeedScore, m.QualityScore, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&resolveFlag, "resolve", false, "show aliases and what they resolve to")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "check the catalog against the alias registry")
	return cmd
}

func showAliases(aliases *config.ModelAliases) error {
	if aliases == nil {
		fmt.Println("No model aliases configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tMODEL\tPROVIDER")
	aliasMap := aliases.ListAliases()
	names := make([]string, 0, len(aliasMap))
	for name := range aliasMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, alias := range names {
		model := aliasMap[alias]
		fmt.Fprintf(w, "%s\t%s\t%s\n", alias, model, aliases.GetProviderForModel(model))
	}
	return w.Flush()
}

func validateCatalog(aliases *config.ModelAliases, engineCfg *config.EngineConfig) error {
	if aliases == nil {
		fmt.Println("No model aliases configured - nothing to validate.")
		return nil
	}
	errs := aliases.ValidateCatalog(engineCfg)
	if len(errs) == 0 {
		fmt.Println("Model catalog is valid.")
		return nil
	}
	fmt.Fprintf(os.Stderr, "Found %d validation errors:\n", len(errs))
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "  - %s\n", err)
	}
	return fmt.Errorf("validation failed")
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the executable tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			reg := buildToolRegistry(cfg, adapter.NewMockBackend())

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tAVG LATENCY\tRELIABILITY")
			for _, t := range reg.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\n",
					t.Kind(), t.Name(), t.AverageLatency(), t.Reliability()*100)
			}
			return w.Flush()
		},
	}
}

func statsCmd() *cobra.Command {
	var recentFlag int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded per-model and per-template outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			path := historyPath(cfg)
			if _, err := os.Stat(path); err != nil {
				fmt.Println("No recorded history yet.")
				return nil
			}
			history, err := feedback.OpenHistory(path)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer history.Close()

			ctx := cmd.Context()
			models, err := history.ModelAggregates(ctx)
			if err != nil {
				return err
			}
			templates, err := history.TemplateAggregates(ctx)
			if err != nil {
				return err
			}
			recent, err := history.Recent(ctx, recentFlag)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tSAMPLES\tCONFIDENCE\tSUCCESS\tLATENCY")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.0f%%\t%s\n",
					m.Model, m.Samples, m.AvgConfidence, m.SuccessRate*100, m.AvgLatency)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "TEMPLATE\tUSES\tSUCCESS\tCONFIDENCE\tCYCLES")
			for _, t := range templates {
				fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%.2f\t%.1f\n",
					t.Template, t.Uses, t.SuccessRate*100, t.AvgConfidence, t.AvgCycles)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "RUN\tWHEN\tTEMPLATE\tMODEL\tCONFIDENCE\tPASSED")
			for _, r := range recent {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%v\n",
					shortID(r.RunID), r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.Template, r.Model, r.Confidence, r.Passed)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&recentFlag, "recent", 10, "number of recent runs to list")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [engine.yaml]",
		Short: "Validate an engine tuning file",
		Long:  "Parses and validates engine tuning YAML without starting the engine.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadEngineConfig(args[0]); err != nil {
				return err
			}
			fmt.Println("Engine configuration is valid.")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if engineFile != "" {
		return config.LoadWithEngineFile(engineFile)
	}
	return config.Load()
}

// buildEngine wires backends, tools, retrieval, and feedback into an engine.
// The returned cleanup closes the feedback history handle.
func buildEngine(cfg *config.Config, index *knowledge.MemoryIndex) (*engine.Engine, func(), error) {
	backends, err := createBackends(cfg)
	if err != nil {
		return nil, nil, err
	}

	var primary adapter.ModelBackend
	for _, name := range []string{"qwen", "openai", "anthropic", "google", "mock"} {
		if b, ok := backends[name]; ok {
			primary = b
			break
		}
	}
	reg := buildToolRegistry(cfg, primary)

	opts := []engine.Option{engine.WithToolRegistry(reg)}
	if index != nil {
		opts = append(opts, engine.WithRetriever(index))
	}
	if verboseFlag {
		opts = append(opts, engine.WithLogger(log.Printf))
	}

	recorder, cleanup, err := createRecorder(cfg)
	if err != nil {
		return nil, nil, err
	}
	if recorder != nil {
		opts = append(opts, engine.WithRecorder(recorder))
	}

	return engine.New(cfg.Engine, backends, opts...), cleanup, nil
}

func createBackends(cfg *config.Config) (map[string]adapter.ModelBackend, error) {
	backends := make(map[string]adapter.ModelBackend)

	if !mockFlag {
		if cfg.AnthropicAPIKey != "" {
			b, err := adapter.NewAnthropicBackend(cfg.AnthropicAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create anthropic backend: %w", err)
			}
			backends["anthropic"] = b
		}
		if cfg.OpenAIAPIKey != "" {
			b, err := adapter.NewOpenAIBackend(cfg.OpenAIAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create openai backend: %w", err)
			}
			backends["openai"] = b
		}
		if cfg.GoogleAPIKey != "" {
			b, err := adapter.NewGoogleBackend(cfg.GoogleAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create google backend: %w", err)
			}
			backends["google"] = b
		}
		if cfg.QwenAPIKey != "" {
			b, err := adapter.NewQwenBackend(cfg.QwenAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create qwen backend: %w", err)
			}
			backends["qwen"] = b
		}
	}

	if len(backends) == 0 {
		if !mockFlag {
			fmt.Fprintln(os.Stderr, "No API keys configured; using the mock backend.")
		}
		backends["mock"] = adapter.NewMockBackend()
		cfg.Engine.Models = []config.ModelSpec{
			{Name: "mock-1", Backend: "mock", CapabilityMin: 0, CapabilityMax: 4,
				SpeedScore: 8, QualityScore: 8},
		}
	}
	return backends, nil
}

func buildToolRegistry(cfg *config.Config, translatorBackend adapter.ModelBackend) *tool.Registry {
	reg := tool.NewRegistry()
	reg.Register(tool.NewCalculator())

	search := tool.NewWebSearch(tool.WithTavilyAPIKey(os.Getenv("TAVILY_API_KEY")))
	if search.Available() {
		reg.Register(search)
	}
	if translatorBackend != nil {
		model := ""
		for _, m := range cfg.Engine.Models {
			if m.Backend == translatorBackend.Name() {
				model = m.Name
				break
			}
		}
		reg.Register(tool.NewTranslator(translatorBackend, model))
	}
	return reg
}

// createRecorder assembles the feedback sinks: per-run JSON files, the
// content-addressed archive, and the SQLite history.
func createRecorder(cfg *config.Config) (feedback.Recorder, func(), error) {
	nop := func() {}
	if cfg.Engine.Feedback.Enabled != nil && !*cfg.Engine.Feedback.Enabled {
		return nil, nop, nil
	}

	writer, err := feedback.NewWriter(filepath.Join(cfg.ConfigDir, "feedback"))
	if err != nil {
		return nil, nop, fmt.Errorf("failed to create feedback writer: %w", err)
	}
	archiveDir := cfg.Engine.Feedback.ArchiveDir
	if archiveDir == "" {
		archiveDir = filepath.Join(cfg.ConfigDir, "archive")
	}
	archive, err := feedback.NewArchive(archiveDir)
	if err != nil {
		return nil, nop, fmt.Errorf("failed to create feedback archive: %w", err)
	}
	history, err := feedback.OpenHistory(historyPath(cfg))
	if err != nil {
		return nil, nop, fmt.Errorf("failed to open feedback history: %w", err)
	}

	recorder := feedback.Multi{writer, archive, history}
	return recorder, func() { history.Close() }, nil
}

func historyPath(cfg *config.Config) string {
	if cfg.Engine.Feedback.HistoryPath != "" {
		return cfg.Engine.Feedback.HistoryPath
	}
	return filepath.Join(cfg.ConfigDir, "history.db")
}

func printFinal(final *answer.Final) {
	fmt.Println(final.Text)
	fmt.Println()

	band := color.New(color.FgRed)
	switch {
	case final.Confidence >= 0.8:
		band = color.New(color.FgGreen)
	case final.Confidence >= 0.6:
		band = color.New(color.FgYellow)
	}

	status := band.Sprintf("confidence %.2f", final.Confidence)
	line := fmt.Sprintf("%s · template %s · %d cycle(s) · %s",
		status, final.Template, final.Cycles, final.ProcessingTime.Round(time.Millisecond))
	if final.Model != "" {
		line += " · model " + final.Model
	}
	fmt.Fprintln(os.Stderr, line)

	if !final.Passed {
		color.New(color.FgYellow).Fprintln(os.Stderr,
			"note: quality checks were not fully satisfied; this is a best-effort answer")
	}
	if len(final.Degraded) > 0 {
		fmt.Fprintf(os.Stderr, "degraded classification: %s\n", strings.Join(final.Degraded, ", "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
