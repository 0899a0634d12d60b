package anychar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/unixpickle/essentials"
	"gopkg.in/yaml.v3"
)

// Default values for optional configuration fields.
const (
	DefaultDepth      = 1
	DefaultDropMargin = 3
	DefaultEvalEvery  = 100
)

// A Config stores every option shared by the
// preprocessing and training commands.
type Config struct {
	DatasetDirIIIT5K string `json:"dataset_dir_iiit5k" yaml:"dataset_dir_iiit5k"`
	DatasetDirVGG    string `json:"dataset_dir_vgg" yaml:"dataset_dir_vgg"`
	UseIIIT5K        bool   `json:"use_iiit5k" yaml:"use_iiit5k"`

	Height     int `json:"height" yaml:"height"`
	WindowSize int `json:"window_size" yaml:"window_size"`
	Depth      int `json:"depth" yaml:"depth"`
	Stride     int `json:"stride" yaml:"stride"`

	// DropMargin is the number of windows dropped from each
	// end of a word.
	// If it is 0, DefaultDropMargin is used.
	DropMargin int `json:"drop_margin" yaml:"drop_margin"`

	JitteringPercent float64 `json:"jittering_percent" yaml:"jittering_percent"`
	EmbedSize        int     `json:"embed_size" yaml:"embed_size"`

	LR        float64 `json:"lr" yaml:"lr"`
	NumEpochs int     `json:"num_epochs" yaml:"num_epochs"`
	BatchSize int     `json:"batch_size" yaml:"batch_size"`

	UseSTN    bool   `json:"use_stn" yaml:"use_stn"`
	CNNMarkup string `json:"cnn_markup" yaml:"cnn_markup"`

	Debug     bool `json:"debug" yaml:"debug"`
	DebugSize int  `json:"debug_size" yaml:"debug_size"`

	CkptDir   string `json:"ckpt_dir" yaml:"ckpt_dir"`
	TestOnly  bool   `json:"test_only" yaml:"test_only"`
	EvalEvery int    `json:"test_and_save_every_n_steps" yaml:"test_and_save_every_n_steps"`

	Visualize    bool   `json:"visualize" yaml:"visualize"`
	VisualizeDir string `json:"visualize_dir" yaml:"visualize_dir"`

	// Workers bounds the goroutines used to decode images.
	// If it is 0, a default based on the CPU is used.
	Workers int `json:"workers" yaml:"workers"`
}

// LoadConfig reads a configuration file.
//
// Files ending in .yaml or .yml are parsed as YAML.
// Everything else is parsed as JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, essentials.AddCtx("load config "+path, err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, essentials.AddCtx("load config "+path, err)
	}
	return &c, nil
}

// DatasetDir returns the directory of the selected
// dataset.
func (c *Config) DatasetDir() string {
	if c.UseIIIT5K {
		return c.DatasetDirIIIT5K
	}
	return c.DatasetDirVGG
}

// Charset returns the charset matching EmbedSize.
func (c *Config) Charset() (Charset, error) {
	return CharsetForSize(c.EmbedSize)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Height <= 0 || c.WindowSize <= 0 {
		return errors.New("height and window_size must be positive")
	}
	if c.Depth != 1 && c.Depth != 3 {
		return fmt.Errorf("depth must be 1 or 3, got %d", c.Depth)
	}
	if c.Stride <= 0 {
		return errors.New("stride must be positive")
	}
	if c.DropMargin < 0 {
		return errors.New("drop_margin must not be negative")
	}
	if c.JitteringPercent < 0 || c.JitteringPercent >= 1 {
		return errors.New("jittering_percent must be in [0, 1)")
	}
	if _, err := c.Charset(); err != nil {
		return err
	}
	if c.LR < 0 {
		return errors.New("lr must not be negative")
	}
	if c.NumEpochs < 0 || c.BatchSize < 0 || c.EvalEvery < 0 {
		return errors.New("num_epochs, batch_size and test_and_save_every_n_steps " +
			"must not be negative")
	}
	if c.Debug && c.DebugSize <= 0 {
		return errors.New("debug mode needs a positive debug_size")
	}
	if c.DatasetDir() == "" {
		return errors.New("missing dataset directory")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Depth == 0 {
		c.Depth = DefaultDepth
	}
	if c.Stride == 0 {
		c.Stride = c.WindowSize / 2
	}
	if c.DropMargin == 0 {
		c.DropMargin = DefaultDropMargin
	}
	if c.EmbedSize == 0 {
		c.EmbedSize = (AlnumCharset{}).Len()
	}
	if c.NumEpochs == 0 {
		c.NumEpochs = 1
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
	if c.EvalEvery == 0 {
		c.EvalEvery = DefaultEvalEvery
	}
	if c.CkptDir == "" {
		c.CkptDir = "ckpt"
	}
	if c.VisualizeDir == "" {
		c.VisualizeDir = "visualize"
	}
}
