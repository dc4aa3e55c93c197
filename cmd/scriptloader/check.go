package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	loader "github.com/goliatone/go-scriptloader"
	"github.com/goliatone/go-scriptloader/compiler"
	"github.com/goliatone/go-scriptloader/config"
	"github.com/goliatone/go-scriptloader/loaderr"
	"github.com/goliatone/go-scriptloader/registry"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Run a dry bootstrap pass and list registrable components",
	Long: `Resolves the script root from the environment, the optional config file
or the positional argument, loads every script and prints the registry keys.
Failures report the loader error class and code.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := runCheck(cmd, args)
		if err == nil {
			return nil
		}
		if class, ok := loaderr.ClassOf(err); ok {
			return fmt.Errorf("check failed [%s %d]: %w", class, class.Code(), err)
		}
		return fmt.Errorf("check failed: %w", err)
	},
}

func init() {
	checkCmd.Flags().String("engine", "expr", "condition engine (expr or cel)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	prefix, _ := flags.GetString("prefix")
	verbose, _ := flags.GetBool("verbose")
	engine, _ := flags.GetString("engine")
	if prefix == "" {
		prefix = config.DefaultPrefix
	}

	source, err := buildSource(configPath, prefix, args)
	if err != nil {
		return err
	}
	conditions, err := conditionEngine(engine)
	if err != nil {
		return err
	}

	reg := registry.NewMemory()
	hook := loader.New(source, reg,
		loader.WithPrefix(prefix),
		loader.WithConditionEvaluator(conditions),
		loader.WithLogger(newLogger(cmd.ErrOrStderr(), verbose)),
	)
	report, err := hook.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "root: %s\n", report.Root)
	fmt.Fprintf(out, "sources: %d, definitions: %d, registered: %d\n",
		len(report.Sources), len(report.Definitions), len(report.Entries))
	for _, entry := range report.Entries {
		fmt.Fprintf(out, "  %s\t%s\t%s\n", entry.Key, markerList(entry.Definition), entry.Definition.Source)
	}
	return nil
}

// buildSource layers, strongest first: the positional root, the process
// environment, then the config file.
func buildSource(configPath, prefix string, args []string) (config.PropertySource, error) {
	var layers []config.PropertySource
	if len(args) == 1 {
		layers = append(layers, config.NewMapSource("args", map[string]string{
			prefix + "." + config.PathProperty: args[0],
		}))
	}
	layers = append(layers, config.NewEnvSource(os.Environ()))

	if configPath != "" {
		file, err := fileSource(configPath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, file)
	}
	return config.NewLayered(layers...), nil
}

func fileSource(path string) (config.PropertySource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.NewYAMLFileSource(path)
	case ".hcl":
		return config.NewHCLFileSource(path)
	default:
		return nil, fmt.Errorf("unsupported config file %q: want .yaml, .yml or .hcl", path)
	}
}

// conditionEngine exposes env(key) to conditions so checks can consult the
// process environment directly.
func conditionEngine(name string) (loader.ConditionEvaluator, error) {
	cache := loader.NewProgramCache()
	functions := loader.NewFunctionRegistry()
	if err := functions.Register("env", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("env expects one argument, got %d", len(args))
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("env expects a string key, got %T", args[0])
		}
		return os.Getenv(key), nil
	}); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "expr":
		return loader.NewExprConditions(
			loader.ExprWithProgramCache(cache),
			loader.ExprWithFunctionRegistry(functions),
		), nil
	case "cel":
		return loader.NewCELConditions(
			loader.CELWithProgramCache(cache),
			loader.CELWithFunctionRegistry(functions),
		), nil
	default:
		return nil, fmt.Errorf("unknown condition engine %q", name)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func markerList(def *compiler.Definition) string {
	names := make([]string, 0, len(def.Markers))
	for _, marker := range def.Markers {
		names = append(names, string(marker))
	}
	return strings.Join(names, ",")
}
