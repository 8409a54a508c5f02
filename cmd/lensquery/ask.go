package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var prompt, imagePath string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Run one query cycle and print the result",
		Long:  `Loads the prompt and an optional image into the host surfaces, runs a single query cycle and prints the display text. The diagnostic text goes to stderr.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAsk(cmd, prompt, imagePath)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "question to ask")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to a JPEG, PNG or GIF frame")
	return cmd
}

func runAsk(cmd *cobra.Command, prompt, imagePath string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	a.surfaces.Prompt.SetText(prompt)
	if imagePath != "" {
		img, err := loadImage(imagePath)
		if err != nil {
			return err
		}
		a.surfaces.Frame.Set(img)
	}
	if a.poller != nil {
		a.poller.Refresh(ctx)
	}

	out, err := a.orch.Trigger(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), a.surfaces.Diagnostic.Text())
	if out.Err != nil {
		return out.Err
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.surfaces.Output.Text())
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
