package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/internal/config"
	"github.com/RishiAhuja/android-llama-inference/internal/httpapi"
	"github.com/RishiAhuja/android-llama-inference/internal/logging"
	"github.com/RishiAhuja/android-llama-inference/internal/registry"
	"github.com/RishiAhuja/android-llama-inference/internal/session"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cfg := defaultConfig()

	root := &cobra.Command{
		Use:           "inferd",
		Short:         "On-device LLM inference daemon for gguf models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "Directory to scan for *.gguf model files")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console|json")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			fileCfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			mergeConfig(&cfg, fileCfg, cmd)
		}
		return nil
	}

	root.AddCommand(buildServeCmd(&cfg))
	root.AddCommand(buildGenerateCmd(&cfg))
	root.AddCommand(buildModelsCmd(&cfg))
	return root
}

func defaultConfig() config.Config {
	cfg := config.Config{
		Addr:      ":8080",
		ModelsDir: "~/models/llm",
		LogLevel:  "info",
		LogFormat: "console",
	}
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("INFERD_MODELS_DIR"); v != "" {
		cfg.ModelsDir = v
	}
	return cfg
}

// mergeConfig overlays file values under any flags the user set explicitly.
func mergeConfig(dst *config.Config, file config.Config, cmd *cobra.Command) {
	changed := func(name string) bool {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			return true
		}
		f := cmd.InheritedFlags().Lookup(name)
		return f != nil && f.Changed
	}
	if file.Addr != "" && !changed("addr") {
		dst.Addr = file.Addr
	}
	if file.ModelsDir != "" && !changed("models-dir") {
		dst.ModelsDir = file.ModelsDir
	}
	if file.LogLevel != "" && !changed("log-level") {
		dst.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" && !changed("log-format") {
		dst.LogFormat = file.LogFormat
	}
	if file.MemBudgetMB != 0 {
		dst.MemBudgetMB = file.MemBudgetMB
	}
	if file.MemMarginMB != 0 {
		dst.MemMarginMB = file.MemMarginMB
	}
	if file.ContextWindow != 0 && !changed("context-window") {
		dst.ContextWindow = file.ContextWindow
	}
	if file.BatchCapacity != 0 && !changed("batch-capacity") {
		dst.BatchCapacity = file.BatchCapacity
	}
	if file.Threads != 0 && !changed("threads") {
		dst.Threads = file.Threads
	}
	if file.GPULayers != 0 && !changed("gpu-layers") {
		dst.GPULayers = file.GPULayers
	}
	if file.UseMmap {
		dst.UseMmap = true
	}
	if file.MaxNewTokens != 0 && !changed("max-tokens") {
		dst.MaxNewTokens = file.MaxNewTokens
	}
	if len(file.StopMarkers) > 0 {
		dst.StopMarkers = file.StopMarkers
	}
	if file.SamplerSeed != 0 {
		dst.SamplerSeed = file.SamplerSeed
	}
}

func buildManager(cfg *config.Config) (*session.Manager, error) {
	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("scan models dir %s: %w", cfg.ModelsDir, err)
	}
	mgr := session.New(backend.NewRuntime(), session.Config{
		Registry:      reg,
		BudgetMB:      cfg.MemBudgetMB,
		MarginMB:      cfg.MemMarginMB,
		ContextWindow: cfg.ContextWindow,
		BatchCapacity: cfg.BatchCapacity,
		Threads:       cfg.Threads,
		GPULayers:     cfg.GPULayers,
		UseMmap:       cfg.UseMmap,
		MaxNewTokens:  cfg.MaxNewTokens,
		StopMarkers:   cfg.StopMarkers,
		SamplerSeed:   cfg.SamplerSeed,
	})
	return mgr, nil
}

func buildServeCmd(cfg *config.Config) *cobra.Command {
	var predictTimeout int64
	var maxBodyBytes int64
	var corsEnabled bool
	var corsOrigins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP inference server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cfg.LogLevel, cfg.LogFormat)
			httpapi.SetLogger(logger)
			if predictTimeout > 0 {
				httpapi.SetPredictTimeoutSeconds(predictTimeout)
			}
			if maxBodyBytes > 0 {
				httpapi.SetMaxBodyBytes(maxBodyBytes)
			}
			if corsEnabled {
				httpapi.SetCORSOptions(true, corsOrigins, nil, nil)
			}

			mgr, err := buildManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			if rep := mgr.SanityCheck(); rep.Error != "" {
				logger.Warn().Str("backend", rep.Backend).Str("lib", rep.LibraryPath).Msg(rep.Error)
			}

			baseCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			httpapi.SetBaseContext(baseCtx)

			srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("inferd listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-stop:
			}

			cancel() // abort in-flight generation before draining connections
			ctx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address, e.g. :8080")
	cmd.Flags().IntVar(&cfg.MemBudgetMB, "mem-budget-mb", 0, "Memory budget in MB across all sessions (0=unlimited)")
	cmd.Flags().IntVar(&cfg.MemMarginMB, "mem-margin-mb", 0, "Reserved memory margin in MB to keep free")
	cmd.Flags().IntVar(&cfg.ContextWindow, "context-window", 0, "KV cache size in tokens (0=default)")
	cmd.Flags().IntVar(&cfg.BatchCapacity, "batch-capacity", 0, "Max tokens per decode batch (0=default)")
	cmd.Flags().IntVar(&cfg.Threads, "threads", 0, "CPU threads for decode (0=default)")
	cmd.Flags().IntVar(&cfg.GPULayers, "gpu-layers", 0, "Layers to offload when a session requests GPU (0=default)")
	cmd.Flags().IntVar(&cfg.MaxNewTokens, "max-tokens", 0, "Default generation budget per predict call (0=default)")
	cmd.Flags().Int64Var(&predictTimeout, "predict-timeout", 0, "Per-request predict timeout in seconds (0=none)")
	cmd.Flags().Int64Var(&maxBodyBytes, "max-body-bytes", 0, "Request body size cap in bytes (0=default)")
	cmd.Flags().BoolVar(&corsEnabled, "cors", false, "Enable CORS for browser clients")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origins (repeatable)")
	return cmd
}

func buildGenerateCmd(cfg *config.Config) *cobra.Command {
	var modelID string
	var useGPU bool
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Load a model, run one prompt, print the reply, unload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelID == "" {
				return fmt.Errorf("--model is required")
			}
			logger := logging.New(cfg.LogLevel, cfg.LogFormat)

			mgr, err := buildManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			ctx := cmd.Context()
			st, err := mgr.Load(ctx, session.LoadSpec{ModelID: modelID, UseGPU: useGPU})
			if err != nil {
				return fmt.Errorf("load %s: %w", modelID, err)
			}
			defer func() {
				if err := mgr.Unload(st.Session); err != nil {
					logger.Warn().Err(err).Str("session", st.Session).Msg("unload failed")
				}
			}()

			res, err := mgr.PredictN(ctx, st.Session, args[0], maxTokens, func(piece string) {
				fmt.Print(piece)
			})
			if err != nil {
				return err
			}
			fmt.Println()
			logger.Info().
				Str("finish_reason", res.FinishReason).
				Int("prompt_tokens", res.PromptTokens).
				Int("generated_tokens", res.GeneratedTokens).
				Msg("generation done")
			return nil
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "Model id (gguf filename) to load")
	cmd.Flags().BoolVar(&useGPU, "gpu", false, "Offload layers to GPU")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Generation budget for this prompt (0=server default)")
	return cmd
}

func buildModelsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List gguf models found in the models directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadDir(cfg.ModelsDir)
			if err != nil {
				return fmt.Errorf("scan models dir %s: %w", cfg.ModelsDir, err)
			}
			if len(reg) == 0 {
				fmt.Println("no models found in", cfg.ModelsDir)
				return nil
			}
			for _, m := range reg {
				line := m.ID
				if m.Quant != "" {
					line += "  " + m.Quant
				}
				if m.Family != "" {
					line += "  (" + m.Family + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
