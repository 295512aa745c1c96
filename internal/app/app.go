package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"supporttriage/internal/config"
	"supporttriage/internal/corpus"
	"supporttriage/internal/httpx"
	"supporttriage/internal/integrations/llm"
	"supporttriage/internal/logging"
	"supporttriage/internal/retrieval"
	"supporttriage/internal/sla"
	"supporttriage/internal/triage"
)

// Version is set at build time.
var Version = "0.1.0"

func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime is the state shared by subcommands once the config is loaded.
type runtime struct {
	cfg      config.Config
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	rt := &runtime{closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:   "supporttriage",
		Short: "Support ticket triage with retrieval and LLM classification",
		Long: `Supporttriage classifies incoming support tickets into priority, urgency,
impact and SLA targets, using similar historical tickets and strategic client
context. It runs as an HTTP API (with optional Slack commands) or one-shot
from the command line.`,
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt.cfg = cfg
			_, rt.closeLog = logging.Setup(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
			applied := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
			slog.Debug("config loaded",
				"provider", cfg.ResolvedProvider(),
				"scorer", cfg.RetrievalScorer,
				"corpus", cfg.CorpusPath,
				"clients", cfg.ClientsPath,
				"db", cfg.DBPath,
				"timezone", cfg.Timezone,
				"external_http_timeout", applied,
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if err := rt.closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		},
	}

	root.AddCommand(newServeCmd(rt))
	root.AddCommand(newClassifyCmd(rt))
	root.AddCommand(newSlaCmd(rt))
	root.AddCommand(newClientsCmd(rt))
	return root
}

// corpusLoader reads the corpus and client files named in the config.
func (rt *runtime) corpusLoader() corpus.Loader {
	return func() *corpus.Store {
		return corpus.Load(rt.cfg.CorpusPath, rt.cfg.ClientsPath)
	}
}

func (rt *runtime) loadCorpus() *corpus.Holder {
	store := rt.corpusLoader()()
	if err := sla.NewResolver(store.SlaMatrix()).Validate(); err != nil {
		slog.Warn("ANS matrix incomplete, missing levels resolve to N/D", "error", err)
	}
	return corpus.NewHolder(store)
}

func (rt *runtime) scorer() retrieval.Scorer {
	if rt.cfg.RetrievalScorer == config.ScorerTFIDF {
		return retrieval.NewTFIDFScorer()
	}
	return retrieval.DiceScorer{}
}

// newTriageService builds the classifier over holder with the configured
// provider chain.
func (rt *runtime) newTriageService(holder *corpus.Holder) (*triage.Service, error) {
	chain, err := llm.NewChainFromConfig(rt.cfg)
	if err != nil {
		return nil, fmt.Errorf("init llm providers: %w", err)
	}
	if chain.Empty() {
		slog.Info("no LLM provider configured, using heuristic classification")
	} else {
		slog.Info("llm providers configured", "providers", chain.Names())
	}
	return triage.NewService(holder, rt.scorer(), chain, triage.Options{
		Temperature:    rt.cfg.LLMTemperature,
		MaxTokens:      rt.cfg.LLMMaxTokens,
		Timeout:        rt.cfg.LLMTimeout(),
		RetrievalLimit: rt.cfg.RetrievalLimit,
		DebugPrompt:    rt.cfg.DebugPrompt,
	}), nil
}
