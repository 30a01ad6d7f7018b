package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/landledger/landledger/internal/core/usecases"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

var errUnparsable = errors.New("location is not parsable")

// input is the location source for a command: a positional argument, a
// file, or stdin.
type input struct {
	File string `short:"i" long:"in" description:"Read the location from a file. Reads from stdin if empty and no argument is given"`
	Args struct {
		Location string `positional-arg-name:"location"`
	} `positional-args:"yes"`
}

func (in input) read(stdin io.Reader) (string, error) {
	if in.Args.Location != "" {
		return in.Args.Location, nil
	}
	var (
		data []byte
		err  error
	)
	if in.File != "" {
		data, err = os.ReadFile(in.File)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

type pointOut struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func points(b geometry.Boundary) []pointOut {
	out := make([]pointOut, len(b))
	for i, p := range b {
		out[i] = pointOut{Lat: p.Lat, Lng: p.Lng}
	}
	return out
}

type parseReport struct {
	Kind     string     `json:"kind" yaml:"kind"`
	Points   int        `json:"points" yaml:"points"`
	Boundary []pointOut `json:"boundary" yaml:"boundary"`
}

type areaReport struct {
	Points       int     `json:"points" yaml:"points"`
	Area         float64 `json:"area" yaml:"area"`
	AreaText     string  `json:"area_text" yaml:"area_text"`
	GeodesicArea float64 `json:"geodesic_area_m2" yaml:"geodesic_area_m2"`
}

type draftReport struct {
	Location     string  `json:"location" yaml:"location"`
	AreaText     string  `json:"area_text" yaml:"area_text"`
	Area         float64 `json:"area" yaml:"area"`
	GeodesicArea float64 `json:"geodesic_area_m2" yaml:"geodesic_area_m2"`
	PointCount   int     `json:"point_count" yaml:"point_count"`
}

type parseCommand struct{ input }

func (c *parseCommand) Execute([]string) error {
	raw, err := c.read(os.Stdin)
	if err != nil {
		return err
	}
	report, _ := parseLocation(raw)
	return emit(report)
}

// parseLocation reports the kind of raw. The second result is false when
// nothing displayable was found.
func parseLocation(raw string) (parseReport, bool) {
	loc := geometry.ParseLocation(raw)
	return parseReport{
		Kind:     loc.Kind.String(),
		Points:   len(loc.Boundary),
		Boundary: points(loc.Boundary),
	}, loc.OK()
}

type areaCommand struct{ input }

func (c *areaCommand) Execute([]string) error {
	raw, err := c.read(os.Stdin)
	if err != nil {
		return err
	}
	report, err := estimateArea(raw)
	if err != nil {
		return err
	}
	return emit(report)
}

func estimateArea(raw string) (areaReport, error) {
	loc := geometry.ParseLocation(raw)
	if !loc.OK() {
		return areaReport{}, errUnparsable
	}
	area := geometry.EstimateArea(loc.Boundary)
	return areaReport{
		Points:       len(loc.Boundary),
		Area:         area,
		AreaText:     fmt.Sprintf("%.2f", area),
		GeodesicArea: geometry.GeodesicArea(loc.Boundary),
	}, nil
}

type centroidCommand struct{ input }

func (c *centroidCommand) Execute([]string) error {
	raw, err := c.read(os.Stdin)
	if err != nil {
		return err
	}
	loc := geometry.ParseLocation(raw)
	if !loc.OK() {
		return errUnparsable
	}
	center := geometry.Centroid(loc.Boundary)
	return emit(pointOut{Lat: center.Lat, Lng: center.Lng})
}

type draftCommand struct{ input }

func (c *draftCommand) Execute([]string) error {
	raw, err := c.read(os.Stdin)
	if err != nil {
		return err
	}
	report, err := draft(raw)
	if err != nil {
		return err
	}
	return emit(report)
}

// draft accepts only the structured form, since it stands in for a drawing.
func draft(raw string) (draftReport, error) {
	var drawn geometry.Boundary
	if err := json.Unmarshal([]byte(raw), &drawn); err != nil {
		return draftReport{}, fmt.Errorf("decode points: %w", err)
	}
	d, err := usecases.NewMapService().Draft(drawn)
	if err != nil {
		return draftReport{}, err
	}
	return draftReport{
		Location:     d.Location,
		AreaText:     d.AreaText,
		Area:         d.Area,
		GeodesicArea: d.GeodesicArea,
		PointCount:   d.PointCount,
	}, nil
}

func emit(v any) error {
	var w io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encode(w, opts.Format, v)
}

func encode(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
