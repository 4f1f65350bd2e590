package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	watermark "github.com/korshek/watermarker"
)

// go run . -in report.pdf -out report_watermarked.pdf
// go run . -in photo.jpg -out photo_watermarked.png
// go run . -config style.yaml scan.png scan_watermarked.png
// go run . -inbase64 "data:image/png;base64,..." -outbase64

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

func main() {
	osExit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("watermarker", flag.ContinueOnError)
	flags.SetOutput(stderr)
	input := flags.String("in", "", "Path to the input file (pdf/png/jpg/jpeg)")
	inputBase64 := flags.String("inbase64", "", "Base64 image input (optionally data URL)")
	output := flags.String("out", "", "Output path (defaults to <name>_watermarked.<pdf|png>)")
	outputBase64 := flags.Bool("outbase64", false, "Write watermarked PNG as base64 to stdout instead of file")
	configPath := flags.String("config", "", "YAML file overriding the default watermark style")
	verbose := flags.Bool("v", false, "Log font resolution details")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *input == "" && flags.NArg() > 0 {
		*input = flags.Arg(0)
	}
	if *output == "" && flags.NArg() > 1 {
		*output = flags.Arg(1)
	}
	if *input == "" && *inputBase64 == "" {
		flags.Usage()
		return 1
	}
	if *inputBase64 != "" && !*outputBase64 {
		fmt.Fprintln(stderr, "base64 input requires -outbase64")
		return 1
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	style := watermark.DefaultStyle()
	if *configPath != "" {
		var err error
		style, err = watermark.LoadStyle(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "load style: %v\n", err)
			return 1
		}
	}

	engine, err := watermark.NewEngine(style, watermark.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "configure watermark: %v\n", err)
		return 1
	}

	if *inputBase64 != "" {
		encoded, err := engine.WatermarkBase64(*inputBase64)
		if err != nil {
			fmt.Fprintf(stderr, "watermark base64 input: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, encoded)
		return 0
	}

	outPath := *output
	if outPath == "" {
		outPath = defaultOutput(*input)
	}

	if err := engine.WatermarkFile(*input, outPath); err != nil {
		fmt.Fprintf(stderr, "watermark %s: %v\n", *input, err)
		return 1
	}

	fmt.Fprintf(stdout, "Watermarked %s -> %s\n", *input, outPath)
	return 0
}

// defaultOutput names the output after the input; images always become PNG.
func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	outExt := ".png"
	if strings.EqualFold(ext, ".pdf") {
		outExt = ".pdf"
	}
	return filepath.Join(filepath.Dir(input), base+"_watermarked"+outExt)
}
