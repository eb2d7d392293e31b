package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"charocr/internal/ocr"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>...",
	Short: "Recognise drawn characters with the saved model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	set, err := selectedClasses()
	if err != nil {
		return err
	}
	engine := newEngine()
	if err := engine.LoadModel(set, cfg.ModelsFolder, cfg.Type()); err != nil {
		if errors.Is(err, ocr.ErrModelNotFound) {
			return fmt.Errorf("the %s model for %s needs training first (charocr train): %w",
				cfg.Type(), describe(set), err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range args {
		c, err := engine.CharFromFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(out, "%s: %s\n", path, c.Repr)
	}
	return nil
}
