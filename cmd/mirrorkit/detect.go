package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrorlab/mirrorkit/pkg/transform"
)

var detectAt int64

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Detect faces in an image or a video frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadForCLI(args[0]); err != nil {
			return err
		}
		session.SetKeyFrame(detectAt)

		n, err := session.DetectFaces(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("found %d face(s)\n", n)

		c := session.Editor.Context()
		for i, r := range session.Editor.Regions() {
			if px, ok := transform.DisplayToMedia(r.Rect, c); ok {
				fmt.Printf("  %d: %dx%d at (%d,%d)\n", i+1, px.Width, px.Height, px.X, px.Y)
			}
		}
		return nil
	},
}

// loadForCLI loads the asset and gives the editor a container matching
// the media, so display and media space coincide for images. Videos get
// a nominal container until frame detection reports the real size.
func loadForCLI(path string) error {
	if err := session.LoadAsset(path); err != nil {
		return err
	}
	if size, ok := session.NativeSize(); ok {
		session.SetContainerSize(float64(size.Width), float64(size.Height))
	} else {
		session.SetContainerSize(1920, 1080)
	}
	return nil
}

func init() {
	detectCmd.Flags().Int64Var(&detectAt, "at", 0, "video timestamp in milliseconds")
	rootCmd.AddCommand(detectCmd)
}
