package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/midi"
	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
	"github.com/ewilliams-labs/natal-symphony/internal/core/services"
)

type composeOptions struct {
	birthFile string
	date      string
	clock     string
	latitude  float64
	longitude float64
	tzOffset  float64
	house     string
	location  string
	midiPath  string
	asJSON    bool
}

func newComposeCmd(root *rootOptions) *cobra.Command {
	opts := &composeOptions{}
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a symphony brief for one birth chart",
		Example: `  natal-symphony compose --date 1990-06-15 --time 14:30 --lat 40.7128 --lon -74.006 --tz -4 --location "New York"
  natal-symphony compose --birth me.json --midi me.mid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			birth, err := opts.birthData()
			if err != nil {
				return err
			}

			cfg, logger, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc := services.NewOrchestrator(newEphemerisClient(cfg, logger), nil, nil, nil, nil, logger.Named("service"))
			result, err := svc.ComposeSymphony(cmd.Context(), birth, opts.location)
			if err != nil {
				return err
			}

			if opts.midiPath != "" {
				if err := writeMIDI(opts.midiPath, result.Composition); err != nil {
					return err
				}
				logger.Info("score written", zap.String("path", opts.midiPath))
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return renderSummary(out, result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.birthFile, "birth", "", "JSON file with the birth record (overrides the other birth flags)")
	f.StringVar(&opts.date, "date", "", "birth date, YYYY-MM-DD")
	f.StringVar(&opts.clock, "time", "12:00", "local birth time, HH:MM")
	f.Float64Var(&opts.latitude, "lat", 0, "birth latitude")
	f.Float64Var(&opts.longitude, "lon", 0, "birth longitude")
	f.Float64Var(&opts.tzOffset, "tz", 0, "UTC offset in hours at the birth moment")
	f.StringVar(&opts.house, "house-system", string(domain.HousePlacidus), "Placidus, Koch, Equal or Whole Sign")
	f.StringVar(&opts.location, "location", "", "place name used in the prompt")
	f.StringVar(&opts.midiPath, "midi", "", "also write the schedule as a Standard MIDI File")
	f.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// birthData builds the request from --birth or from the individual flags.
func (o *composeOptions) birthData() (domain.BirthData, error) {
	if o.birthFile != "" {
		data, err := os.ReadFile(o.birthFile)
		if err != nil {
			return domain.BirthData{}, fmt.Errorf("read birth file: %w", err)
		}
		var b domain.BirthData
		if err := json.Unmarshal(data, &b); err != nil {
			return domain.BirthData{}, fmt.Errorf("parse birth file %s: %w", o.birthFile, err)
		}
		return b, b.Validate()
	}

	if o.date == "" {
		return domain.BirthData{}, errors.New("either --birth or --date is required")
	}
	day, err := time.Parse(time.DateOnly, o.date)
	if err != nil {
		return domain.BirthData{}, fmt.Errorf("%w: date %q: want YYYY-MM-DD", domain.ErrInvalidBirthData, o.date)
	}
	clock, err := time.Parse("15:04", o.clock)
	if err != nil {
		return domain.BirthData{}, fmt.Errorf("%w: time %q: want HH:MM", domain.ErrInvalidBirthData, o.clock)
	}

	b := domain.BirthData{
		Year:           day.Year(),
		Month:          int(day.Month()),
		Day:            day.Day(),
		Hour:           clock.Hour(),
		Minute:         clock.Minute(),
		Latitude:       o.latitude,
		Longitude:      o.longitude,
		TimezoneOffset: o.tzOffset,
		HouseSystem:    domain.HouseSystem(o.house),
	}
	return b, b.Validate()
}

func writeMIDI(path string, c domain.CompositionStructure) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return midi.Writer{}.WriteScore(f, c)
}
