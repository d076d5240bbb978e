package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mirrorlab/mirrorkit/pkg/orchestrator"
)

var (
	swapFace  string
	swapFaces []string
	swapAt    int64
)

var swapCmd = &cobra.Command{
	Use:   "swap <file>",
	Short: "Swap faces in an image",
	Long: `Swap faces in an image.

With --face, the given face replaces every detected face. With --faces,
the first face becomes the locked primary of a multi-face pool, faces are
auto-detected as regions and the pool entries are bound round-robin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prepareSwap(cmd, args[0]); err != nil {
			return err
		}

		out, err := session.Submit(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(colorstring.Color("[green]done[reset] " + out.Result))
		return nil
	},
}

var swapVideoCmd = &cobra.Command{
	Use:   "swap-video <file>",
	Short: "Swap faces in a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session.SetKeyFrame(swapAt)
		if err := prepareSwap(cmd, args[0]); err != nil {
			return err
		}

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("swapping"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		session.Jobs.OnUpdate = func(u orchestrator.Update) {
			if u.Status == orchestrator.StatusRunning {
				bar.Set(int(u.Progress))
			}
		}

		out, err := session.Submit(cmd.Context())
		if err != nil {
			return err
		}
		if out.Queued {
			final, err := session.Jobs.Wait(cmd.Context())
			if err != nil {
				// interrupted; tell the service to stop
				session.Cancel(cmd.Context())
				return err
			}
			bar.Finish()
			fmt.Fprintln(os.Stderr)
			if final.Status != orchestrator.StatusSucceeded {
				return fmt.Errorf("job %s: %s", final.Status, final.Err)
			}
			out.Result = final.Result
		}

		fmt.Println(colorstring.Color("[green]done[reset] " + out.Result))
		return nil
	},
}

// prepareSwap loads the input and sets up either a single target face or
// a multi-face pool with detected, round-robin-bound regions.
func prepareSwap(cmd *cobra.Command, path string) error {
	if err := loadForCLI(path); err != nil {
		return err
	}

	if len(swapFaces) == 0 {
		if swapFace == "" {
			return fmt.Errorf("either --face or --faces is required")
		}
		session.SetTargetFace(swapFace)
		return nil
	}

	session.EnableMultiFace(swapFaces[0])
	if _, rejected := session.AddFaceSources(swapFaces[1:]); len(rejected) > 0 {
		for _, r := range rejected {
			fmt.Fprintln(os.Stderr, colorstring.Color("[yellow]skipped[reset] "+r.Path+": "+r.Reason))
		}
	}

	n, err := session.DetectFaces(cmd.Context())
	if err != nil {
		return fmt.Errorf("face detection: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no faces detected in %s", path)
	}
	fmt.Fprintf(os.Stderr, "detected %d face(s)\n", n)

	entries := session.Pool.Entries()
	for i := range session.Editor.Regions() {
		session.Editor.Bind(i, entries[i%len(entries)].ID)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{swapCmd, swapVideoCmd} {
		c.Flags().StringVarP(&swapFace, "face", "f", "", "face image for single-face swap")
		c.Flags().StringSliceVar(&swapFaces, "faces", nil, "face images for multi-face swap (first is primary)")
	}
	swapVideoCmd.Flags().Int64Var(&swapAt, "at", 0, "keyframe timestamp in milliseconds for region detection")

	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(swapVideoCmd)
}
