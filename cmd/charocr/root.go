package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"charocr/internal/classes"
	"charocr/internal/classifier"
	"charocr/internal/config"
	"charocr/internal/dataset"
	"charocr/internal/ocr"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "charocr",
	Short:        "Train and run handwritten character classifiers",
	SilenceUsage: true,
	Long: `charocr extracts features from per-class folders of drawn characters,
trains a neural network, k-nearest or SVM classifier on them and
recognises new drawings with the saved model.`,
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "config file (default ~/.config/charocr/config.yaml)")
	f.String("dataset", "", "dataset folder, one sub-folder per class")
	f.String("models", "", "folder holding trained models")
	f.String("classifier", "", "classifier type: ann, knn or svm")
	f.StringSlice("classes", nil, "class values to use (default: every built-in class)")
	f.Int64("seed", 0, "seed for shuffling and weight init (0 = config value)")
}

// loadConfig reads the config file and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			return err
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("dataset") {
		c.DatasetFolder, _ = f.GetString("dataset")
	}
	if f.Changed("models") {
		c.ModelsFolder, _ = f.GetString("models")
	}
	if f.Changed("classifier") {
		c.Classifier, _ = f.GetString("classifier")
	}
	if f.Changed("classes") {
		c.Classes, _ = f.GetStringSlice("classes")
	}
	if f.Changed("seed") {
		c.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("ratio") {
		c.TrainRatio, _ = f.GetFloat64("ratio")
	}
	if f.Changed("max") {
		c.MaxPerClass, _ = f.GetInt("max")
	}
	if f.Changed("errors") {
		c.ErrorsIterations, _ = f.GetInt("errors")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// selectedClasses is the class set named by the config, in taxonomy order.
func selectedClasses() (classes.Set, error) {
	set, err := classes.Builtin().Select(cfg.Classes...)
	if err != nil {
		return classes.Set{}, err
	}
	if set.Len() == 0 {
		return classes.Set{}, fmt.Errorf("no classes selected")
	}
	return set, nil
}

func classifierOptions() []classifier.Option {
	if cfg.Seed == 0 {
		return nil
	}
	return []classifier.Option{classifier.WithSeed(cfg.Seed)}
}

func openDataset(opts ...dataset.Option) *dataset.Dataset {
	if cfg.Seed != 0 {
		opts = append(opts, dataset.WithSeed(cfg.Seed))
	}
	return dataset.New(cfg.DatasetFolder, opts...)
}

func newEngine() *ocr.Engine {
	return ocr.NewEngine(classifierOptions()...)
}

func describe(set classes.Set) string {
	if set.Len() > 8 {
		return fmt.Sprintf("%d classes", set.Len())
	}
	return strings.Join(set.Values(), " ")
}
