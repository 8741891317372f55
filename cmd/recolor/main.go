// recolor - Palette-based image recoloring tool
//
// Subcommands:
//
//	generate-palette  Extract a decomposition palette from an image
//	recolor-image     Rebuild an image with a substituted palette
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"

	recolor "github.com/aprilwade/image-palette-recoloring"
	"github.com/aprilwade/image-palette-recoloring/utils"
)

const helpBanner = `
┬─┐┌─┐┌─┐┌─┐┬  ┌─┐┬─┐
├┬┘├┤ │  │ ││  │ │├┬┘
┴└─└─┘└─┘└─┘┴─┘└─┘┴└─

Palette-based image recoloring tool.
    Version: %s

`

// Version indicates the current build version.
var Version string

// maxSizeSlack bounds how many extra collapse steps run the expensive
// error estimate before the target size is reached.
const maxSizeSlack = 6

func main() {
	log.SetFlags(0)
	utils.ColorOutput = term.IsTerminal(int(os.Stderr.Fd()))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "generate-palette":
		err = generatePalette(os.Args[2:])
	case "recolor-image":
		err = recolorImage(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		log.Fatal(utils.DecorateText("Error: "+err.Error(), utils.ErrorMessage))
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, helpBanner, Version)
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  recolor generate-palette [--error-bound F] [--min-size N] INPUT_IMAGE\n")
	fmt.Fprintf(os.Stderr, "  recolor recolor-image --decomposition-palette C1,C2,... --input-image PATH\n")
	fmt.Fprintf(os.Stderr, "      --reconstruction-palette C'1,C'2,... --output-image PATH [--save-individual-channels]\n\n")
	fmt.Fprintf(os.Stderr, "Palettes are comma-separated lists of 6-hex-digit colors, e.g. 1b2c3d,ffffff,000000,aa5500\n")
}

func generatePalette(args []string) error {
	fs := flag.NewFlagSet("generate-palette", flag.ExitOnError)
	errorBound := fs.Float64("error-bound", recolor.DefaultErrorBound, "Per-pixel average error allowed during palette simplification")
	minSize := fs.Int("min-size", 4, "Number of palette colors to target (at least 4)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("generate-palette expects exactly one INPUT_IMAGE argument")
	}
	if *minSize < 4 {
		return fmt.Errorf("--min-size must be at least 4, got %d", *minSize)
	}

	img, err := openImage(fs.Arg(0))
	if err != nil {
		return err
	}

	start := time.Now()
	spinner := utils.NewSpinner(utils.DecorateText("Extracting the palette...", utils.StatusMessage), time.Millisecond*80, true)
	spinner.Start()
	palette, err := recolor.ComputePalette(img, *minSize, *minSize+maxSizeSlack, *errorBound)
	spinner.Stop()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, utils.DecorateText(
		fmt.Sprintf("Extracted %d colors in %s", len(palette), utils.FormatTime(time.Since(start))),
		utils.SuccessMessage))

	fmt.Println(formatPalette(palette))
	return nil
}

func recolorImage(args []string) error {
	fs := flag.NewFlagSet("recolor-image", flag.ExitOnError)
	decompositionArg := fs.String("decomposition-palette", "", "Palette the image is decomposed against")
	inputPath := fs.String("input-image", "", "Source image")
	reconstructionArg := fs.String("reconstruction-palette", "", "Palette substituted during reconstruction")
	outputPath := fs.String("output-image", "", "Destination image")
	saveChannels := fs.Bool("save-individual-channels", false, "Write each palette channel as a grayscale image next to the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inputPath == "" || *outputPath == "" {
		return errors.New("--input-image and --output-image are required")
	}

	decomposition, err := parsePalette(*decompositionArg)
	if err != nil {
		return fmt.Errorf("invalid --decomposition-palette: %w", err)
	}
	reconstruction, err := parsePalette(*reconstructionArg)
	if err != nil {
		return fmt.Errorf("invalid --reconstruction-palette: %w", err)
	}
	if len(decomposition) != len(reconstruction) {
		return fmt.Errorf("the decomposition palette and the reconstruction palette must be the same size (%d vs %d)",
			len(decomposition), len(reconstruction))
	}

	img, err := openImage(*inputPath)
	if err != nil {
		return err
	}

	start := time.Now()
	spinner := utils.NewSpinner(utils.DecorateText("Decomposing the image...", utils.StatusMessage), time.Millisecond*80, true)
	spinner.Start()
	weights, err := recolor.NewImageWeights(img)
	if err != nil {
		spinner.Stop()
		return err
	}
	decomposed, err := recolor.NewDecomposedImage(weights, decomposition)
	spinner.Stop()
	if err != nil {
		return err
	}

	reconstructed, err := decomposed.Reconstruct(reconstruction)
	if err != nil {
		return err
	}
	if err := saveImage(*outputPath, reconstructed); err != nil {
		return err
	}

	if *saveChannels {
		dir := filepath.Dir(*outputPath)
		ext := filepath.Ext(*outputPath)
		stem := strings.TrimSuffix(filepath.Base(*outputPath), ext)
		for i, c := range decomposition {
			channel, err := decomposed.ChannelGrayscale(i)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("%s_channel_%d_%02X%02X%02X%s", stem, i, c.R, c.G, c.B, ext)
			if err := saveImage(filepath.Join(dir, name), channel); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(os.Stderr, utils.DecorateText(
		fmt.Sprintf("Rebuilt %s in %s", *outputPath, utils.FormatTime(time.Since(start))),
		utils.SuccessMessage))
	return nil
}

// pipeName indicates that stdin/stdout is being used as file names.
const pipeName = "-"

func openImage(path string) (image.Image, error) {
	if path == pipeName {
		img, _, err := image.Decode(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("could not decode the piped image: %w", err)
		}
		return img, nil
	}
	ctype, err := utils.DetectFileContentType(path)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(ctype, "image") {
		return nil, fmt.Errorf("%s is not an image file", path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open the image %s: %w", path, err)
	}
	return img, nil
}

func saveImage(path string, img image.Image) error {
	if path == pipeName {
		return recolor.EncodeImage(os.Stdout, img, ".png")
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("could not save the image %s: %w", path, err)
	}
	return nil
}

// parsePalette parses a comma-separated list of 6-hex-digit color
// tokens.
func parsePalette(list string) ([]recolor.RGB, error) {
	if list == "" {
		return nil, errors.New("no colors were provided")
	}
	tokens := strings.Split(list, ",")
	palette := make([]recolor.RGB, len(tokens))
	for i, token := range tokens {
		if len(token) != 6 {
			return nil, fmt.Errorf("color %d isn't valid: wrong length", i)
		}
		c, err := colorful.Hex("#" + token)
		if err != nil {
			return nil, fmt.Errorf("color %d isn't valid: %w", i, err)
		}
		r, g, b := c.RGB255()
		palette[i] = recolor.RGB{R: r, G: g, B: b}
	}
	return palette, nil
}

// formatPalette renders a palette as comma-separated lowercase hex
// tokens.
func formatPalette(palette []recolor.RGB) string {
	tokens := make([]string, len(palette))
	for i, c := range palette {
		col := colorful.Color{
			R: float64(c.R) / 255.0,
			G: float64(c.G) / 255.0,
			B: float64(c.B) / 255.0,
		}
		tokens[i] = strings.TrimPrefix(col.Hex(), "#")
	}
	return strings.Join(tokens, ",")
}
