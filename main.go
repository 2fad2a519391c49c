package main

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/matthewnorman/geoscripts/centroid"
)

const PROPERTYNAME string = `property_name`
const PROJECTION string = `projection`
const LAYER string = `layer`

func main() {
	app := newApp()
	err := app.Run(reorderArgs(app.Flags, os.Args))
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "centroids"
	app.Usage = "Writes the centroid of every polygon in a vector file as latitude/longitude CSV"
	app.ArgsUsage = "<input-path> <output-path>"
	app.Version = versioninfo.Short()
	defaults := centroid.DefaultConfig()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     PROPERTYNAME,
			Aliases:  []string{"p"},
			Usage:    "Attribute written as the first column (tag) of every row",
			Value:    defaults.PropertyName,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(PROPERTYNAME)},
		},
		&cli.IntFlag{
			Name:     PROJECTION,
			Usage:    "EPSG code of the input coordinates. E.g.: 2227 (NAD83 / California zone 3 (ftUS))",
			Value:    defaults.Projection,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(PROJECTION)},
		},
		&cli.StringFlag{
			Name:     LAYER,
			Aliases:  []string{"l"},
			Usage:    "Feature table to read from a GeoPackage, the first one when empty",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(LAYER)},
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.NArg() != 2 {
			_ = cli.ShowAppHelp(c)
			return errors.New("expected exactly two arguments: <input-path> <output-path>")
		}
		cfg := centroid.DefaultConfig()
		cfg.Input = c.Args().Get(0)
		cfg.Output = c.Args().Get(1)
		// the flags carry the defaults, explicit values always win
		cfg.PropertyName = c.String(PROPERTYNAME)
		cfg.Projection = c.Int(PROJECTION)
		cfg.Layer = c.String(LAYER)
		return centroid.Run(cfg)
	}
	return app
}

// reorderArgs moves flags (and their values) in front of the positional arguments,
// the flag parser stops at the first positional argument
func reorderArgs(flags []cli.Flag, args []string) []string {
	if len(args) == 0 {
		return args
	}
	takesValue := make(map[string]bool)
	for _, f := range flags {
		df, ok := f.(cli.DocGenerationFlag)
		for _, name := range f.Names() {
			takesValue[name] = ok && df.TakesValue()
		}
	}

	reordered := []string{args[0]}
	var positional []string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--":
			positional = append(positional, rest[i+1:]...)
			i = len(rest)
		case len(arg) > 1 && strings.HasPrefix(arg, "-"):
			reordered = append(reordered, arg)
			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") {
				continue
			}
			if takesValue[name] && i+1 < len(rest) {
				reordered = append(reordered, rest[i+1])
				i++
			}
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) > 0 {
		reordered = append(reordered, "--")
		reordered = append(reordered, positional...)
	}
	return reordered
}
