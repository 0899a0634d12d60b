// Command anychar preprocesses word images, trains a
// character classifier, and inspects trained models.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/unixpickle/anychar"
	"github.com/unixpickle/anychar/anysrc"
	"github.com/unixpickle/essentials"
)

const (
	trainContainer = "train.anychar"
	testContainer  = "test.anychar"
)

var commands = map[string]func(args []string) error{
	"preproc": Preproc,
	"train":   Train,
	"predict": Predict,
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
	}
	if err := cmd(os.Args[2:]); err != nil {
		essentials.Die(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: anychar <preproc | train | predict> [flags]")
	os.Exit(2)
}

// parseConfig parses a subcommand's flags and loads the
// configuration file they name.
func parseConfig(fs *flag.FlagSet, args []string) (*anychar.Config, error) {
	var configPath string
	fs.StringVar(&configPath, "config", "config.json", "configuration file (JSON or YAML)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := anychar.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers()
	}
	log.Printf("CPU: %s (%d physical cores, %d workers)", cpuid.CPU.BrandName,
		cpuid.CPU.PhysicalCores, cfg.Workers)
	return cfg, nil
}

func defaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// loadExamples reads one split of the configured dataset,
// truncated in debug mode.
func loadExamples(cfg *anychar.Config, s anysrc.Split) ([]*anysrc.Example, error) {
	examples, err := anysrc.Read(cfg.DatasetDir(), cfg.UseIIIT5K, s)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		examples = anysrc.Truncate(examples, cfg.DebugSize)
	}
	log.Printf("Loaded %d %s examples.", len(examples), s)
	return examples, nil
}
