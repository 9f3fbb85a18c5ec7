package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"rtmask/internal/config"
	"rtmask/internal/maskio"
	"rtmask/internal/roi"
	"rtmask/internal/rtstruct"
	"rtmask/internal/series"
	"rtmask/internal/synth"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	mode := flag.String("mode", "", "Operation: export (mask -> RTSTRUCT), import (RTSTRUCT -> mask), synth (generate test series)")
	seriesDir := flag.String("series", "", "Directory containing the DICOM image series (required for export/import)")
	maskDir := flag.String("mask", "", "Directory of TIFF mask slices (input for export, output for import)")
	rtstructPath := flag.String("rtstruct", "", "RTSTRUCT file path (output for export, input for import)")
	roiName := flag.String("roi", "", "ROI name (default from config: 'ROI-1')")
	pinHole := flag.Bool("pinhole", false, "Carve cavities open before tracing (export)")
	approximate := flag.Bool("approximate", false, "Thin contours instead of keeping every boundary vertex (export)")
	workers := flag.Int("workers", 0, fmt.Sprintf("Number of parallel workers (default: %d = CPU cores)", runtime.NumCPU()))
	configFile := flag.String("config", "", "Load defaults from YAML config file")
	quiet := flag.Bool("quiet", false, "Suppress progress output")

	// Synth mode options
	synthSlices := flag.Int("slices", 3, "Number of slices to generate (synth)")
	synthRows := flag.Int("rows", 16, "Rows per slice (synth)")
	synthColumns := flag.Int("columns", 16, "Columns per slice (synth)")
	synthPixelSpacing := flag.Float64("pixel-spacing", 1.0, "Pixel spacing in mm (synth)")
	synthSliceSpacing := flag.Float64("slice-spacing", 1.0, "Slice spacing in mm (synth)")
	synthOut := flag.String("output", "synth_series", "Output directory (synth)")

	help := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version")

	flag.Parse()

	if *showVersion {
		fmt.Printf("rtmask %s\n", version)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *roiName != "" {
		cfg.Conversion.ROIName = *roiName
	}
	if *workers != 0 {
		cfg.Conversion.Workers = *workers
	}
	if *pinHole {
		cfg.Conversion.UsePinHole = true
	}
	if *approximate {
		cfg.Conversion.ApproximateContours = true
	}
	if *quiet {
		cfg.Output.Quiet = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "export":
		if *seriesDir == "" || *maskDir == "" || *rtstructPath == "" {
			fmt.Fprintln(os.Stderr, "Error: export requires --series, --mask and --rtstruct")
			printUsage()
			os.Exit(1)
		}
		err = runExport(ctx, cfg, *seriesDir, *maskDir, *rtstructPath)
	case "import":
		if *seriesDir == "" || *maskDir == "" || *rtstructPath == "" {
			fmt.Fprintln(os.Stderr, "Error: import requires --series, --mask and --rtstruct")
			printUsage()
			os.Exit(1)
		}
		err = runImport(ctx, cfg, *seriesDir, *rtstructPath, *maskDir)
	case "synth":
		_, err = synth.GenerateSeries(synth.Options{
			OutputDir:    *synthOut,
			Slices:       *synthSlices,
			Rows:         *synthRows,
			Columns:      *synthColumns,
			PixelSpacing: [2]float64{*synthPixelSpacing, *synthPixelSpacing},
			SliceSpacing: *synthSliceSpacing,
			Origin:       [3]float64{-100, -100, -100},
			Workers:      cfg.Conversion.Workers,
			Quiet:        cfg.Output.Quiet,
		})
	case "":
		fmt.Fprintln(os.Stderr, "Error: --mode is required")
		printUsage()
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *mode)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(ctx context.Context, cfg *config.Config, seriesDir, maskDir, rtstructPath string) error {
	s, err := series.LoadSeries(seriesDir)
	if err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		fmt.Printf("Loaded %d slices from %s\n", len(s.Slices), seriesDir)
	}

	m, err := maskio.ReadStack(maskDir)
	if err != nil {
		return err
	}

	perSlice, err := roi.ContoursFromMask(ctx, roi.ROIData{
		Mask:                m,
		UsePinHole:          cfg.Conversion.UsePinHole,
		ApproximateContours: cfg.Conversion.ApproximateContours,
	}, s, roi.Options{Workers: cfg.Conversion.Workers})
	if err != nil {
		return err
	}

	var contours []roi.Contour
	for _, sc := range perSlice {
		contours = append(contours, sc...)
	}
	if !cfg.Output.Quiet {
		fmt.Printf("Traced %d contours for ROI %q\n", len(contours), cfg.Conversion.ROIName)
	}

	if err := rtstruct.Write(rtstructPath, s, "RTMASK", []rtstruct.ROI{{
		Name:     cfg.Conversion.ROIName,
		Contours: contours,
	}}); err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		fmt.Printf("RTSTRUCT written to %s\n", rtstructPath)
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, seriesDir, rtstructPath, maskDir string) error {
	s, err := series.LoadSeries(seriesDir)
	if err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		fmt.Printf("Loaded %d slices from %s\n", len(s.Slices), seriesDir)
	}

	set, err := rtstruct.Read(rtstructPath)
	if err != nil {
		return err
	}
	r, ok := set.ROIByName(cfg.Conversion.ROIName)
	if !ok {
		return fmt.Errorf("ROI %q not found in %s", cfg.Conversion.ROIName, rtstructPath)
	}

	m, err := roi.MaskFromContours(ctx, s, r.Contours, roi.Options{Workers: cfg.Conversion.Workers})
	if err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		fmt.Printf("Rasterized %d contours into a %dx%dx%d mask\n",
			len(r.Contours), m.Columns, m.Rows, m.Slices)
	}

	if err := maskio.WriteStack(maskDir, m); err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		fmt.Printf("Mask slices written to %s\n", maskDir)
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  rtmask --mode <export|import|synth> [options]")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func printHelp() {
	fmt.Println("rtmask")
	fmt.Println("======")
	fmt.Println()
	fmt.Println("Convert binary masks to DICOM RTSTRUCT contours and back.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rtmask --mode export --series <DIR> --mask <DIR> --rtstruct <FILE> [options]")
	fmt.Println("  rtmask --mode import --series <DIR> --rtstruct <FILE> --mask <DIR> [options]")
	fmt.Println("  rtmask --mode synth --output <DIR> [options]")
	fmt.Println()
	fmt.Println("Modes:")
	fmt.Println("  export   Trace a TIFF mask stack into patient-space contours and write an RTSTRUCT")
	fmt.Println("  import   Rasterize the contours of an RTSTRUCT ROI back into a TIFF mask stack")
	fmt.Println("  synth    Generate a small synthetic DICOM image series for testing")
	fmt.Println()
	fmt.Println("Common options:")
	fmt.Println("  --series <DIR>        Directory containing the DICOM image series")
	fmt.Println("  --mask <DIR>          Directory of TIFF mask slices (slice_000.tiff, ...)")
	fmt.Println("  --rtstruct <FILE>     RTSTRUCT file path")
	fmt.Println("  --roi <NAME>          ROI name (default: 'ROI-1')")
	fmt.Println("  --pinhole             Carve cavities open before tracing")
	fmt.Println("  --approximate         Thin contours with a half-pixel tolerance")
	fmt.Printf("  --workers <N>         Number of parallel workers (default: %d = CPU cores)\n", runtime.NumCPU())
	fmt.Println("  --config <FILE>       Load defaults from YAML config file")
	fmt.Println("  --quiet               Suppress progress output")
	fmt.Println()
	fmt.Println("Synth options:")
	fmt.Println("  --output <DIR>        Output directory (default: 'synth_series')")
	fmt.Println("  --slices <N>          Number of slices (default: 3)")
	fmt.Println("  --rows <N>            Rows per slice (default: 16)")
	fmt.Println("  --columns <N>         Columns per slice (default: 16)")
	fmt.Println("  --pixel-spacing <MM>  Pixel spacing (default: 1.0)")
	fmt.Println("  --slice-spacing <MM>  Slice spacing (default: 1.0)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Generate a 5-slice test series")
	fmt.Println("  rtmask --mode synth --output ./series --slices 5 --rows 32 --columns 32")
	fmt.Println()
	fmt.Println("  # Export a mask stack as an RTSTRUCT")
	fmt.Println("  rtmask --mode export --series ./series --mask ./mask --rtstruct ./rtstruct.dcm --roi GTV")
	fmt.Println()
	fmt.Println("  # Import it back, carving cavities open first")
	fmt.Println("  rtmask --mode import --series ./series --rtstruct ./rtstruct.dcm --mask ./mask_out --roi GTV")
	fmt.Println()
	fmt.Println("Reproducibility:")
	fmt.Println("  Synth mode derives all UIDs from the output directory name, so the")
	fmt.Println("  same directory regenerates the same series.")
}
