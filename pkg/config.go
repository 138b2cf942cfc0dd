package pkg

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultInterval = 500 * time.Millisecond

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Files are watched when they exist at startup.
	Files []string `yaml:"files"`
	// Dirs maps a directory to the extensions watched below it, an empty
	// list watches every file.
	Dirs     map[string][]string `yaml:"dirs"`
	Interval time.Duration       `yaml:"interval"`
	Command  []string            `yaml:"command"`
	Verbose  bool                `yaml:"verbose"`
}

func ReadConfig(file string) (*Config, error) {
	yfile, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	c := Config{}
	err = yaml.Unmarshal(yfile, &c)
	if err != nil {
		return nil, err
	}

	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Dirs == nil {
		c.Dirs = map[string][]string{}
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if len(c.Files) == 0 && len(c.Dirs) == 0 {
		return errors.Join(ErrInvalidConfig, errors.New("nothing to watch, set files or dirs"))
	}
	if len(c.Command) == 0 || c.Command[0] == "" {
		return errors.Join(ErrInvalidConfig, errors.New("command is empty"))
	}
	for dir := range c.Dirs {
		if dir == "" {
			return errors.Join(ErrInvalidConfig, fmt.Errorf("empty directory key"))
		}
	}
	return nil
}
