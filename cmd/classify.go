package main

import (
	"os/signal"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	classifyLat    float64
	classifyLng    float64
	classifyCoords string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify geometry against restricted-flight zones",
}

var classifyPointCmd = &cobra.Command{
	Use:   "point",
	Short: "Classify a single waypoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		zones, err := loadZoneSet(ctx)
		if err != nil {
			return err
		}
		c, err := newClassifier()
		if err != nil {
			return err
		}

		verdict := c.ClassifyPoint(orb.Point{classifyLng, classifyLat}, candidateSource(zones))
		return printJSON(verdict)
	},
}

var classifyPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Classify a flight path",
	Long:  "Tests every segment of the path against every zone and reports all boundary crossings. Any crossing is a DANGER verdict.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pts, err := parseCoords(classifyCoords)
		if err != nil {
			return eris.Wrap(err, "classify path")
		}

		zones, err := loadZoneSet(ctx)
		if err != nil {
			return err
		}
		c, err := newClassifier()
		if err != nil {
			return err
		}

		verdict := c.ClassifyPath(orb.LineString(pts), zones)
		return printJSON(verdict)
	},
}

var classifyAreaCmd = &cobra.Command{
	Use:   "area",
	Short: "Classify a survey area polygon",
	Long:  "Sums the overlap between the polygon and every zone. Overlap above 20% of the polygon's own area is DANGER, any overlap below that WARNING.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pts, err := parseCoords(classifyCoords)
		if err != nil {
			return eris.Wrap(err, "classify area")
		}

		zones, err := loadZoneSet(ctx)
		if err != nil {
			return err
		}
		c, err := newClassifier()
		if err != nil {
			return err
		}

		verdict := c.ClassifyPolygon(orb.Polygon{orb.Ring(pts)}, zones)
		return printJSON(verdict)
	},
}

func init() {
	classifyPointCmd.Flags().Float64Var(&classifyLat, "lat", 0, "latitude (decimal degrees)")
	classifyPointCmd.Flags().Float64Var(&classifyLng, "lng", 0, "longitude (decimal degrees)")
	_ = classifyPointCmd.MarkFlagRequired("lat")
	_ = classifyPointCmd.MarkFlagRequired("lng")

	for _, c := range []*cobra.Command{classifyPathCmd, classifyAreaCmd} {
		c.Flags().StringVar(&classifyCoords, "coords", "", `coordinates as "lng,lat lng,lat ..."`)
		_ = c.MarkFlagRequired("coords")
	}

	for _, c := range []*cobra.Command{classifyPointCmd, classifyPathCmd, classifyAreaCmd} {
		c.Flags().StringVar(&zonesDataset, "dataset", "", "use a stored zone dataset instead of the zone directory")
		c.Flags().StringVar(&zonesDir, "dir", "", "zone source directory (defaults to zones.dir)")
		classifyCmd.AddCommand(c)
	}

	rootCmd.AddCommand(classifyCmd)
}
