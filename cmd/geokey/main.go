package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/geo"
)

var precision int

var rootCmd = &cobra.Command{
	Use:   "geokey",
	Short: "Spatial key utilities for operators",
	Long:  `Encode coordinates to spatial keys, decode keys back to coordinates, list neighboring cells, and compute great-circle distances.`,
}

var encodeCmd = &cobra.Command{
	Use:   "encode LAT LON",
	Short: "Encode a coordinate to a spatial key",
	Args:  cobra.ExactArgs(2),
	RunE:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode KEY",
	Short: "Decode a spatial key to its cell centroid and bounds",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors KEY",
	Short: "List the neighboring cells of a spatial key",
	Args:  cobra.ExactArgs(1),
	RunE:  runNeighbors,
}

var distanceCmd = &cobra.Command{
	Use:   "distance LAT1 LON1 LAT2 LON2",
	Short: "Compute the great-circle distance between two coordinates in km",
	Args:  cobra.ExactArgs(4),
	RunE:  runDistance,
}

func init() {
	encodeCmd.Flags().IntVarP(&precision, "precision", "p", 5, "Key length in symbols")
	rootCmd.AddCommand(encodeCmd, decodeCmd, neighborsCmd, distanceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCoordinate(latArg, lonArg string) (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid latitude %q", latArg)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid longitude %q", lonArg)
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	c, err := parseCoordinate(args[0], args[1])
	if err != nil {
		return err
	}
	key, err := geo.Encode(c, precision)
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	key := args[0]
	bounds, err := geo.DecodeBounds(key)
	if err != nil {
		return err
	}
	center := bounds.Center()
	fmt.Printf("center: %.6f %.6f\n", center.Lat, center.Lon)
	fmt.Printf("bounds: lat [%.6f, %.6f] lon [%.6f, %.6f]\n",
		bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon)
	fmt.Printf("cell:   %.3f km diagonal\n", geo.CellDiagonal(len(key)))
	return nil
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	neighbors, err := geo.Neighbors(args[0])
	if err != nil {
		return err
	}
	for _, n := range neighbors {
		fmt.Println(n)
	}
	return nil
}

func runDistance(cmd *cobra.Command, args []string) error {
	a, err := parseCoordinate(args[0], args[1])
	if err != nil {
		return err
	}
	b, err := parseCoordinate(args[2], args[3])
	if err != nil {
		return err
	}
	fmt.Printf("%.3f km\n", geo.Distance(a, b))
	return nil
}
