package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier on the dataset and save it",
	Long: `train reads up to --max samples per class from the dataset folder,
splits them by --ratio, trains the configured classifier and runs --errors
rounds of error injection before saving the model to the models folder.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.Float64("ratio", 0.5, "fraction of each class used for training")
	f.Int("max", 400, "maximum samples read per class")
	f.Int("errors", 0, "error-injection rounds after the baseline")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	set, err := selectedClasses()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	engine := newEngine()
	sink := func(msg string) { fmt.Fprintln(out, msg) }

	fmt.Fprintf(out, "Training %s on %s from %s\n", cfg.Type(), describe(set), cfg.DatasetFolder)
	if err := engine.TrainModel(openDataset(), set, cfg.Type(), cfg.Params(), sink); err != nil {
		return err
	}
	path, err := engine.SaveModel(cfg.ModelsFolder)
	if err != nil {
		return fmt.Errorf("cannot save model: %w", err)
	}
	fmt.Fprintf(out, "Model saved to %s\n", path)
	return nil
}
