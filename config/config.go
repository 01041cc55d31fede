// Package config resolves the effective settings: built-in defaults, then an
// optional TOML file, then .env files and PHOTOTRIAGE_* environment
// variables. Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"phototriage/utils"
)

// DefaultConfigFile is read from the working directory when no --config is
// given and the file exists.
const DefaultConfigFile = "phototriage.toml"

const envPrefix = "PHOTOTRIAGE_"

// HashAlgorithms lists the accepted hash_algorithm values.
var HashAlgorithms = []string{"average", "difference", "perception", "opencv-average", "opencv-perceptual"}

type Config struct {
	InputFolder   string        `toml:"input_folder"`
	OutputFolder  string        `toml:"output_folder"`
	Threshold     int           `toml:"threshold"`
	HashAlgorithm string        `toml:"hash_algorithm"`
	HashSize      int           `toml:"hash_size"`
	Workers       int           `toml:"workers"`
	Database      string        `toml:"database"`
	LogFile       string        `toml:"log_file"`
	Debug         bool          `toml:"debug"`
	Blur          BlurConfig    `toml:"blur"`
	Quality       QualityConfig `toml:"quality"`
	Faces         FacesConfig   `toml:"faces"`
}

type BlurConfig struct {
	Threshold float64 `toml:"blur_threshold"`
}

type QualityConfig struct {
	BrightnessThreshold float64 `toml:"brightness_threshold"`
	OverexposureLevel   int     `toml:"overexposure_level"`
	OverexposureRatio   float64 `toml:"overexposure_ratio"`
}

type FacesConfig struct {
	Cascade string `toml:"face_cascade"`
	Tag     bool   `toml:"tag_faces"`
}

func Default() Config {
	return Config{
		InputFolder:   "images",
		OutputFolder:  "output",
		Threshold:     10,
		HashAlgorithm: "average",
		HashSize:      8,
		Blur:          BlurConfig{Threshold: 100},
		Quality: QualityConfig{
			BrightnessThreshold: 40,
			OverexposureLevel:   250,
			OverexposureRatio:   0.3,
		},
	}
}

// Load builds the configuration. An explicit path must exist; with an empty
// path DefaultConfigFile is used when present.
func Load(path string) (Config, error) {
	if err := loadDotEnvPrecedence(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := mergeFile(&cfg, path); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnvPrecedence copies .env and .env.local into the process
// environment without overriding variables that are already set.
func loadDotEnvPrecedence() error {
	for _, name := range []string{".env", ".env.local"} {
		values, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); !exists {
				if setErr := os.Setenv(k, v); setErr != nil {
					return setErr
				}
			}
		}
	}
	return nil
}

func mergeFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *Config) error {
	strs := map[string]*string{
		"INPUT_FOLDER":   &cfg.InputFolder,
		"OUTPUT_FOLDER":  &cfg.OutputFolder,
		"HASH_ALGORITHM": &cfg.HashAlgorithm,
		"DATABASE":       &cfg.Database,
		"LOG_FILE":       &cfg.LogFile,
		"FACE_CASCADE":   &cfg.Faces.Cascade,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			*dst = v
		}
	}

	if v := lookup("THRESHOLD"); v != "" {
		t, err := utils.ParseThreshold(v)
		if err != nil {
			return fmt.Errorf("%sTHRESHOLD: %w", envPrefix, err)
		}
		cfg.Threshold = t
	}

	ints := map[string]*int{
		"HASH_SIZE":          &cfg.HashSize,
		"WORKERS":            &cfg.Workers,
		"OVEREXPOSURE_LEVEL": &cfg.Quality.OverexposureLevel,
	}
	for key, dst := range ints {
		if v := lookup(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"BLUR_THRESHOLD":       &cfg.Blur.Threshold,
		"BRIGHTNESS_THRESHOLD": &cfg.Quality.BrightnessThreshold,
		"OVEREXPOSURE_RATIO":   &cfg.Quality.OverexposureRatio,
	}
	for key, dst := range floats {
		if v := lookup(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"DEBUG":     &cfg.Debug,
		"TAG_FACES": &cfg.Faces.Tag,
	}
	for key, dst := range bools {
		if v := lookup(key); v != "" {
			b, err := utils.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}
	return nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

// Validate rejects settings no command can run with
func (c Config) Validate() error {
	var errs []error
	if c.InputFolder == "" {
		errs = append(errs, errors.New("input_folder must not be empty"))
	}
	if c.OutputFolder == "" {
		errs = append(errs, errors.New("output_folder must not be empty"))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must be non-negative, got %d", c.Threshold))
	}
	if !knownAlgorithm(c.HashAlgorithm) {
		errs = append(errs, fmt.Errorf("unknown hash_algorithm %q (want one of %s)", c.HashAlgorithm, strings.Join(HashAlgorithms, ", ")))
	}
	if c.HashSize != 0 && (c.HashSize < 8 || c.HashSize&(c.HashSize-1) != 0) {
		errs = append(errs, fmt.Errorf("hash_size %d must be a power of two >= 8", c.HashSize))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative, got %d", c.Workers))
	}
	if c.Quality.OverexposureLevel < 0 || c.Quality.OverexposureLevel > 255 {
		errs = append(errs, fmt.Errorf("overexposure_level must be within 0..255, got %d", c.Quality.OverexposureLevel))
	}
	if c.Quality.OverexposureRatio < 0 || c.Quality.OverexposureRatio > 1 {
		errs = append(errs, fmt.Errorf("overexposure_ratio must be within 0..1, got %g", c.Quality.OverexposureRatio))
	}
	return errors.Join(errs...)
}

func knownAlgorithm(name string) bool {
	for _, a := range HashAlgorithms {
		if a == name {
			return true
		}
	}
	return false
}

// Write encodes the configuration as TOML
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
