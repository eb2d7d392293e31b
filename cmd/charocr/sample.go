package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"charocr/internal/classes"
	"charocr/internal/dataset"
	ocrimage "charocr/internal/image"
)

// historyFile keeps the samples added by earlier invocations so that
// "sample undo" works across processes.
const historyFile = ".charocr-history.yaml"

type sampleHistory struct {
	Added []string `yaml:"added"`
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Add drawn samples to the dataset or undo the last one",
}

var sampleAddCmd = &cobra.Command{
	Use:   "add <class> <image>",
	Short: "Copy an image into the dataset folder of a class",
	Args:  cobra.ExactArgs(2),
	RunE:  runSampleAdd,
}

var sampleUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Delete the most recently added sample",
	Args:  cobra.NoArgs,
	RunE:  runSampleUndo,
}

func init() {
	sampleAddCmd.Flags().String("prefix", "", "file name prefix (default: config sample_prefix)")
	sampleAddCmd.Flags().String("format", "png", "stored format: png or bmp")
	sampleAddCmd.Flags().Int("random", 0, "also store this many randomly tilted and re-stroked variants")
	sampleCmd.AddCommand(sampleAddCmd, sampleUndoCmd)
	rootCmd.AddCommand(sampleCmd)
}

func runSampleAdd(cmd *cobra.Command, args []string) error {
	cl, ok := classes.Builtin().Lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: %q", classes.ErrUnknown, args[0])
	}
	img, err := ocrimage.Read(args[1])
	if err != nil {
		return err
	}
	prefix := cfg.SamplePrefix
	if cmd.Flags().Changed("prefix") {
		prefix, _ = cmd.Flags().GetString("prefix")
	}
	format, _ := cmd.Flags().GetString("format")
	ext := "." + strings.ToLower(format)
	random, _ := cmd.Flags().GetInt("random")

	history, err := loadHistory()
	if err != nil {
		return err
	}
	ds := openDataset(dataset.WithHistory(history.Added))
	path, err := ds.AddSample(prefix, cl, img, ext)
	if err != nil {
		return err
	}
	added := []string{path}
	if random > 0 {
		params := dataset.DefaultRandomParams()
		params.Count = random
		variants, err := ds.AugmentSample(prefix, cl, img, ext, params)
		added = append(added, variants...)
		if err != nil {
			// Keep what was written undoable.
			if herr := saveHistory(sampleHistory{Added: ds.Added()}); herr != nil {
				log.Printf("[sample] cannot save history: %v", herr)
			}
			return err
		}
	}
	if err := saveHistory(sampleHistory{Added: ds.Added()}); err != nil {
		return err
	}
	for _, p := range added {
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", p)
	}
	return nil
}

func runSampleUndo(cmd *cobra.Command, _ []string) error {
	history, err := loadHistory()
	if err != nil {
		return err
	}
	ds := dataset.New(cfg.DatasetFolder, dataset.WithHistory(history.Added))
	removed, err := ds.RemoveLast()
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo")
		return nil
	}
	if err := saveHistory(sampleHistory{Added: ds.Added()}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", history.Added[len(history.Added)-1])
	return nil
}

func loadHistory() (sampleHistory, error) {
	var h sampleHistory
	path := filepath.Join(cfg.DatasetFolder, historyFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return h, fmt.Errorf("cannot read sample history: %w", err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return h, nil
}

func saveHistory(h sampleHistory) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DatasetFolder, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.DatasetFolder, historyFile), data, 0o644)
}
