// Command emfir inspects cryo-EM detector files: it prints header
// metadata as JSON or renders grayscale PNG thumbnails from EER
// movies and MRC maps.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BioImage-Archive/emfir/eer"
	"github.com/BioImage-Archive/emfir/internal/render"
	"github.com/BioImage-Archive/emfir/meta"
	"github.com/BioImage-Archive/emfir/mrc"
)

const (
	cmdHeader    = "header"
	cmdThumbnail = "thumbnail"
)

func main() {
	var (
		file       = flag.String("file", "", "input file (.eer, .tif, .mrc, .map, .map.gz)")
		command    = flag.String("command", cmdHeader, "header or thumbnail")
		output     = flag.String("output", "", "output PNG path (thumbnail only)")
		downsample = flag.Int("downsample", 0, "EER: decode every Nth frame; MRC: sample every Nth voxel")
		configPath = flag.String("config", "", "YAML config file with defaults")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "emfir:", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Debug = true
	}
	if *downsample > 0 {
		cfg.Downsample = *downsample
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *file == "" {
		logger.Error("missing -file")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(logger, cfg, *file, *command, *output); err != nil {
		logger.Error("processing failed", "file", *file, "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg config, file, command, output string) error {
	switch formatFor(file) {
	case formatEER:
		return runEER(logger, cfg, file, command, output)
	case formatMRC:
		return runMRC(logger, cfg, file, command, output)
	}
	return fmt.Errorf("unsupported file extension: %q", filepath.Ext(file))
}

type format int

const (
	formatUnknown format = iota
	formatEER
	formatMRC
)

func formatFor(path string) format {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	switch filepath.Ext(name) {
	case ".eer", ".tif", ".tiff":
		return formatEER
	case ".mrc", ".map":
		return formatMRC
	}
	return formatUnknown
}

func runEER(logger *slog.Logger, cfg config, file, command, output string) error {
	d, err := eer.OpenOptions(file, eer.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer d.Close()

	switch command {
	case cmdHeader:
		return printJSON(struct {
			meta.ImageData
			FrameCount int `json:"frame_count"`
		}{d.Header(), d.FrameCount()})

	case cmdThumbnail:
		if output == "" {
			return fmt.Errorf("thumbnail requires -output")
		}
		logger.Debug("summing frames", "frames", d.FrameCount(), "stride", cfg.Downsample)
		img, err := d.Sum(cfg.Downsample)
		if err != nil {
			return err
		}
		if err := render.WritePNG(output, render.LogGray(img.Pix(), img.Width(), img.Height())); err != nil {
			return err
		}
		logger.Info("thumbnail written", "output", output)
		return nil
	}
	return fmt.Errorf("unknown command: %q", command)
}

func runMRC(logger *slog.Logger, cfg config, file, command, output string) error {
	f, err := mrc.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	switch command {
	case cmdHeader:
		return printJSON(f.ImageData())

	case cmdThumbnail:
		if output == "" {
			return fmt.Errorf("thumbnail requires -output")
		}
		if err := f.WriteThumbnail(output, cfg.Downsample); err != nil {
			return err
		}
		logger.Info("thumbnail written", "output", output)
		return nil
	}
	return fmt.Errorf("unknown command: %q", command)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(out))
	return err
}
