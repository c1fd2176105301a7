package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunConfig holds the settings for one sampling run.  Values come from an
// optional yaml config file with BAYESHMM_* environment overrides.
type RunConfig struct {
	Gobfile  string
	Logname  string
	Iter     int
	BurnIn   int
	Thin     int
	Seed     uint64
	RefState int

	AllowEmptyState bool
	Progress        bool

	// Over-dispersed emission mean starting values, one row per chain
	MeanStarts [][]float64

	// Output file for the posterior mean trace plot; empty disables it
	Plotfile string
}

func initRunConfig(cmd *cobra.Command) (*RunConfig, error) {

	viper.SetEnvPrefix("bayeshmm")
	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.SetDefault("logname", "hmm")
	viper.SetDefault("iter", 10000)
	viper.SetDefault("burnin", 1000)
	viper.SetDefault("thin", 1)
	viper.SetDefault("seed", 42)
	viper.SetDefault("refstate", 0)
	viper.SetDefault("allowemptystate", false)
	viper.SetDefault("progress", true)
	viper.SetDefault("meanstarts", [][]float64{{2, 4}, {1, 5}})
	viper.SetDefault("plotfile", "")

	flag := cmd.Flags().Lookup("config")
	if flag == nil {
		return nil, errors.New("cmd has no config flag")
	}

	if cfgFile := flag.Value.String(); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", cfgFile)
		}
	}

	rc := &RunConfig{
		Gobfile:         viper.GetString("gobfile"),
		Logname:         viper.GetString("logname"),
		Iter:            viper.GetInt("iter"),
		BurnIn:          viper.GetInt("burnin"),
		Thin:            viper.GetInt("thin"),
		Seed:            viper.GetUint64("seed"),
		RefState:        viper.GetInt("refstate"),
		AllowEmptyState: viper.GetBool("allowemptystate"),
		Progress:        viper.GetBool("progress"),
		Plotfile:        viper.GetString("plotfile"),
	}

	// yaml decodes nested sequences as []interface{}, so convert by hand
	switch v := viper.Get("meanstarts").(type) {
	case [][]float64:
		rc.MeanStarts = v
	case []interface{}:
		for _, r := range v {
			row, err := cast.ToSliceE(r)
			if err != nil {
				return nil, errors.Wrap(err, "parsing meanstarts")
			}
			mu := make([]float64, len(row))
			for i, x := range row {
				mu[i], err = cast.ToFloat64E(x)
				if err != nil {
					return nil, errors.Wrap(err, "parsing meanstarts")
				}
			}
			rc.MeanStarts = append(rc.MeanStarts, mu)
		}
	default:
		return nil, errors.New("meanstarts must be a list of per-chain mean vectors")
	}

	return rc, nil
}
