package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/breeze-rmm/screencap/internal/desktop"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var displaysFormat string

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List capturable displays",
	RunE: func(cmd *cobra.Command, args []string) error {
		displays, err := listDisplays()
		if err != nil {
			return err
		}
		defer closeDisplays(displays)

		infos := make([]displayInfo, 0, len(displays))
		for _, d := range displays {
			infos = append(infos, describeDisplay(d))
		}
		return renderDisplays(os.Stdout, infos, displaysFormat)
	},
}

func init() {
	displaysCmd.Flags().StringVar(&displaysFormat, "format", "text", "output format: text, yaml or json")
}

type displayInfo struct {
	Index    int    `json:"index" yaml:"index"`
	Name     string `json:"name" yaml:"name"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
	Left     int    `json:"left" yaml:"left"`
	Top      int    `json:"top" yaml:"top"`
	Rotation string `json:"rotation" yaml:"rotation"`
	Attached bool   `json:"attached" yaml:"attached"`
}

func describeDisplay(d *desktop.Display) displayInfo {
	b := d.Bounds()
	return displayInfo{
		Index:    int(d.ID()),
		Name:     d.Name(),
		Width:    d.Width(),
		Height:   d.Height(),
		Left:     b.Min.X,
		Top:      b.Min.Y,
		Rotation: d.Rotation().String(),
		Attached: d.Attached(),
	}
}

func renderDisplays(w io.Writer, infos []displayInfo, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tNAME\tSIZE\tPOSITION\tROTATION")
		for _, d := range infos {
			fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%d,%d\t%s\n", d.Index, d.Name, d.Width, d.Height, d.Left, d.Top, d.Rotation)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (use text, yaml or json)", format)
	}
}
