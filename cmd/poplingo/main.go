package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/poplingo/internal/archive"
	"codeberg.org/snonux/poplingo/internal/cli"
	"codeberg.org/snonux/poplingo/internal/processor"
)

func main() {
	flags := cli.NewFlags()
	rootCmd := cli.CreateRootCommand(flags)

	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	log := newLogger(flags.Verbose)
	slog.SetDefault(log)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	// Handle --archive before the database is opened
	if flags.Archive {
		dbPath := cli.LoadSettings(flags).StorePath
		archived, err := archive.ArchiveDatabase(dbPath)
		if err != nil {
			return fmt.Errorf("failed to archive notebook: %w", err)
		}
		fmt.Printf("Notebook archived to: %s\n", archived)
		return nil
	}

	proc, err := processor.NewProcessor(ctx, flags, log)
	if err != nil {
		return err
	}
	defer proc.Close()

	if flags.ClearCache {
		if err := proc.ClearSpeechCache(); err != nil {
			return err
		}
		if len(args) == 0 && flags.BatchFile == "" && !flags.GenerateAnki && !flags.ListModels {
			return nil
		}
	}

	if flags.ListModels {
		return proc.ListModels(ctx)
	}

	switch {
	case flags.BatchFile != "":
		if err := proc.ProcessBatch(ctx); err != nil {
			return err
		}
	case len(args) > 0:
		if err := proc.ProcessSingleWord(ctx, args[0]); err != nil {
			return err
		}
	case !flags.GenerateAnki:
		// No input provided - start the interactive shell by default
		return proc.RunShell(ctx)
	}

	if flags.GenerateAnki {
		fmt.Printf("\nGenerating Anki import file...\n")
		outputPath, err := proc.GenerateAnkiFile()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to generate Anki file: %v\n", err)
		} else {
			fmt.Printf("Anki package created: %s\n", outputPath)
		}
	}

	return nil
}
