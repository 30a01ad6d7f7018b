// Command landctl inspects stored land locations and drawn boundaries
// without touching the ledger.
package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

// Options are shared by every command.
type Options struct {
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "LandLedger operator tool"

	mustAdd(parser, "parse", "Classify a location string", "Parse a stored location and print its kind and boundary.", &parseCommand{})
	mustAdd(parser, "area", "Estimate the area of a location", "Print the scaled planar estimate and the geodesic area in square meters.", &areaCommand{})
	mustAdd(parser, "centroid", "Print the center of a location", "Print the arithmetic mean of the boundary points.", &centroidCommand{})
	mustAdd(parser, "draft", "Build a form draft from drawn points", "Read a JSON array of {lat,lng} points and print the location string and area text.", &draftCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func mustAdd(p *flags.Parser, name, short, long string, cmd any) {
	if _, err := p.AddCommand(name, short, long, cmd); err != nil {
		panic(err)
	}
}
