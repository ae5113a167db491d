package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/render"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A simple gameboy emulator"
	app.Usage = "dmg [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "bootrom",
			Usage: "Path to a 256-byte boot ROM image (optional)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "sdl",
			Usage: "Use the SDL2 window instead of the terminal renderer",
		},
		cli.BoolFlag{
			Name:  "strict",
			Usage: "Fault on prohibited memory accesses (debugging)",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(1)
	}
}

func emulatorOptions(c *cli.Context) ([]dmg.Option, error) {
	var opts []dmg.Option

	if path := c.String("bootrom"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read boot ROM: %w", err)
		}
		opts = append(opts, dmg.WithBootROM(data))
	}
	if c.Bool("strict") {
		opts = append(opts, dmg.WithStrictAccess())
	}

	return opts, nil
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	opts, err := emulatorOptions(c)
	if err != nil {
		return err
	}

	emu, err := dmg.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	if c.Bool("headless") {
		return runHeadless(c, emu, romPath)
	}

	if c.Bool("sdl") {
		renderer, err := render.NewSDL2Renderer(emu)
		if err != nil {
			return err
		}
		return renderer.Run()
	}

	renderer, err := render.NewTerminalRenderer(emu)
	if err != nil {
		return err
	}
	return renderer.Run()
}

func runHeadless(c *cli.Context, emu *dmg.Emulator, romPath string) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	snapshotInterval := c.Int("snapshot-interval")
	snapshotDir := c.String("snapshot-dir")

	if snapshotInterval > 0 {
		if snapshotDir == "" {
			tempDir, err := os.MkdirTemp("", "dmg-snapshots-*")
			if err != nil {
				return fmt.Errorf("failed to create snapshot directory: %v", err)
			}
			snapshotDir = tempDir
		} else if err := os.MkdirAll(snapshotDir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %v", err)
		}
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))

	romName := filepath.Base(romPath)
	romName = strings.TrimSuffix(romName, filepath.Ext(romName))

	slog.Info("running headless mode", "frames", frames, "snapshot_interval", snapshotInterval, "snapshot_dir", snapshotDir)

	for i := 0; i < frames; i++ {
		if err := emu.RunUntilFrame(); err != nil {
			return err
		}

		if snapshotInterval > 0 && (i+1)%snapshotInterval == 0 {
			snapshotPath := filepath.Join(snapshotDir, fmt.Sprintf("%s_frame_%d.txt", romName, i+1))
			if err := saveFrameSnapshot(emu, snapshotPath); err != nil {
				slog.Error("failed to save snapshot", "frame", i+1, "path", snapshotPath, "error", err)
			} else {
				slog.Info("saved frame snapshot", "frame", i+1, "path", snapshotPath)
			}
		}

		if i%10 == 0 {
			slog.Info("frame progress", "completed", i+1, "total", frames)
		}
	}

	slog.Info("headless execution completed",
		"frames", frames,
		"cycles", emu.TotalCycles(),
		"instructions", emu.InstructionCount())
	return nil
}

// saveFrameSnapshot saves the current frame as a half-block text file.
func saveFrameSnapshot(emu *dmg.Emulator, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "# Game Boy frame snapshot (half-block rendering)\n")
	fmt.Fprintf(file, "# Frame: %d, Instructions: %d\n", emu.FrameCount(), emu.InstructionCount())
	fmt.Fprintf(file, "#\n")

	for _, line := range render.FrameToHalfBlocks(emu.Screen()) {
		fmt.Fprintf(file, "%s\n", line)
	}

	return nil
}
