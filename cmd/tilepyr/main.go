// tilepyr builds a tiled image pyramid from a single source image.
//
// The source image is sliced into 256x256 tiles, each level is reduced
// by the chosen factor with a rounded box filter, and every level is
// stitched back together and written as an image file. The tool also
// reports per-level tile compression ratios when a codec is selected.
//
// Supported input formats: PNG, JPEG, GIF, TIFF, WebP, BMP.
// Supported output formats: PNG (default), TIFF.
//
// Usage:
//
//	tilepyr [options] infile
//
// Options:
//
//	-o <dir>      output directory - default: .
//	-factor <n>   downsample factor per level, 2 or 4 - default: 2
//	-codec <c>    report compressed tile sizes (none, deflate, zstd)
//	-strip        drop alpha before the compression report
//	-tiff         write TIFF output instead of PNG
//	-v            verbose output
//	-version      show version information
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/wsilib/go-slidetile/buffer"
	"github.com/wsilib/go-slidetile/pyramid"
	"github.com/wsilib/go-slidetile/tile"
	"github.com/wsilib/go-slidetile/tilecodec"
)

const version = "1.0.0"

func main() {
	outDir := flag.String("o", ".", "output directory")
	factor := flag.Int("factor", 2, "downsample factor per level (2 or 4)")
	codecStr := flag.String("codec", "", "report compressed tile sizes (none, deflate, zstd)")
	stripAlpha := flag.Bool("strip", false, "drop alpha before the compression report")
	writeTIFF := flag.Bool("tiff", false, "write TIFF output instead of PNG")
	verbose := flag.Bool("v", false, "verbose output")
	showVersion := flag.Bool("version", false, "show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tilepyr [options] infile\n\n")
		fmt.Fprintf(os.Stderr, "Build a tiled image pyramid from a source image.\n\n")
		fmt.Fprintf(os.Stderr, "The image is sliced into 256x256 tiles and reduced level by\n")
		fmt.Fprintf(os.Stderr, "level until one tile covers the whole image. Each level is\n")
		fmt.Fprintf(os.Stderr, "written to the output directory as <name>_L<n>.<ext>.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("tilepyr version %s\n", version)
		fmt.Println("Part of go-slidetile - https://github.com/wsilib/go-slidetile")
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if *factor != 2 && *factor != 4 {
		fmt.Fprintf(os.Stderr, "Error: invalid factor: %d (must be 2 or 4)\n", *factor)
		os.Exit(1)
	}

	codec := tilecodec.None
	reportCodec := false
	switch *codecStr {
	case "":
	case "none":
		reportCodec = true
	case "deflate":
		codec, reportCodec = tilecodec.Deflate, true
	case "zstd":
		codec, reportCodec = tilecodec.Zstd, true
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid codec: %s\n", *codecStr)
		fmt.Fprintf(os.Stderr, "Valid options are: none, deflate, zstd\n")
		os.Exit(1)
	}

	opts := buildOptions{
		outDir:      *outDir,
		factor:      *factor,
		codec:       codec,
		reportCodec: reportCodec,
		stripAlpha:  *stripAlpha,
		writeTIFF:   *writeTIFF,
		verbose:     *verbose,
	}
	if err := build(args[0], opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type buildOptions struct {
	outDir      string
	factor      int
	codec       tilecodec.Codec
	reportCodec bool
	stripAlpha  bool
	writeTIFF   bool
	verbose     bool
}

func build(inFile string, opts buildOptions) error {
	f, err := os.Open(inFile)
	if err != nil {
		return fmt.Errorf("cannot open input file: %w", err)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("cannot decode input file: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if opts.verbose {
		fmt.Printf("Reading file %s\n", inFile)
		fmt.Printf("  Format: %s, %dx%d pixels\n", format, width, height)
	}

	ext, err := pyramid.ComputeExtent(uint32(width), uint32(height), opts.factor)
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Printf("  Pyramid: %d layers at factor %d\n", len(ext.Layers), opts.factor)
	}

	const channels = 4
	tiles, err := sliceTiles(img)
	if err != nil {
		return err
	}

	pool := buffer.NewPool()
	name := strings.TrimSuffix(filepath.Base(inFile), filepath.Ext(inFile))

	// Level 0 is the full resolution base; each further level is built
	// from the previous one.
	levelW, levelH := width, height
	for level := 0; ; level++ {
		if opts.verbose {
			fmt.Printf("Level %d: %dx%d pixels, %dx%d tiles\n",
				level, levelW, levelH, len(tiles[0]), len(tiles))
		}
		if opts.reportCodec {
			if err := reportLevel(tiles, opts.codec, level, opts.stripAlpha); err != nil {
				return err
			}
		}
		if err := writeLevel(tiles, levelW, levelH, name, level, opts); err != nil {
			return err
		}

		if len(tiles) == 1 && len(tiles[0]) == 1 {
			break
		}
		next, err := pyramid.BuildLevelParallel(tiles, opts.factor, channels, pool)
		if err != nil {
			return err
		}
		// The base level's tiles were allocated directly; only buffers
		// obtained from the pool go back to it.
		if level > 0 {
			for _, row := range tiles {
				for _, t := range row {
					pool.Put(t)
				}
			}
		}
		tiles = next
		levelW = (levelW + opts.factor - 1) / opts.factor
		levelH = (levelH + opts.factor - 1) / opts.factor
	}

	if opts.verbose {
		fmt.Println("Pyramid complete.")
	}
	return nil
}

// sliceTiles converts the image to 8-bit RGBA and cuts it into a grid
// of full 256x256 tiles, zero-padding the ragged right and bottom
// edges.
func sliceTiles(img image.Image) ([][]*buffer.Buffer, error) {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	yTiles := (bounds.Dy() + tile.Length - 1) / tile.Length
	xTiles := (bounds.Dx() + tile.Length - 1) / tile.Length
	tiles := make([][]*buffer.Buffer, yTiles)
	for ty := range tiles {
		tiles[ty] = make([]*buffer.Buffer, xTiles)
		for tx := range tiles[ty] {
			b := buffer.NewSized(tile.BytesRGBA)
			if err := b.SetSize(tile.BytesRGBA); err != nil {
				return nil, err
			}
			dst := b.Storage()
			for y := 0; y < tile.Length; y++ {
				sy := ty*tile.Length + y
				if sy >= bounds.Dy() {
					break
				}
				row := rgba.Pix[sy*rgba.Stride:]
				sx := tx * tile.Length
				w := bounds.Dx() - sx
				if w > tile.Length {
					w = tile.Length
				}
				copy(dst[y*tile.Length*4:], row[sx*4:(sx+w)*4])
			}
			tiles[ty][tx] = b
		}
	}
	return tiles, nil
}

// writeLevel stitches a level's tiles back into one image, cropped to
// the level's pixel dimensions, and writes it out.
func writeLevel(tiles [][]*buffer.Buffer, width, height int, name string, level int, opts buildOptions) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for ty, row := range tiles {
		for tx, t := range row {
			if t == nil {
				continue
			}
			src := t.Data()
			for y := 0; y < tile.Length; y++ {
				dy := ty*tile.Length + y
				if dy >= height {
					break
				}
				dx := tx * tile.Length
				w := width - dx
				if w > tile.Length {
					w = tile.Length
				}
				copy(img.Pix[dy*img.Stride+dx*4:], src[y*tile.Length*4:y*tile.Length*4+w*4])
			}
		}
	}

	ext := ".png"
	if opts.writeTIFF {
		ext = ".tiff"
	}
	outPath := filepath.Join(opts.outDir, fmt.Sprintf("%s_L%d%s", name, level, ext))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	defer out.Close()

	if opts.writeTIFF {
		err = tiff.Encode(out, img, &tiff.Options{Compression: tiff.Deflate})
	} else {
		err = png.Encode(out, img)
	}
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", outPath, err)
	}
	if opts.verbose {
		fmt.Printf("  Wrote %s\n", outPath)
	}
	return nil
}

// reportLevel serializes every tile of a level into a compressed frame
// and prints the combined ratio. With stripAlpha the tiles are first
// converted to 3-channel RGB, the storage format for slides without
// transparency.
func reportLevel(tiles [][]*buffer.Buffer, codec tilecodec.Codec, level int, stripAlpha bool) error {
	format := tile.FormatRGBA
	scratch := buffer.NewSized(tile.BytesRGB)
	var raw, packed int64
	for _, row := range tiles {
		for _, t := range row {
			if t == nil {
				continue
			}
			payload := t
			if stripAlpha {
				rgb, err := tile.Convert(t, tile.FormatRGBA, tile.FormatRGB, scratch)
				if err != nil {
					return fmt.Errorf("level %d: %w", level, err)
				}
				payload, format = rgb, tile.FormatRGB
			}
			frame, err := tilecodec.EncodeFrame(payload, format, codec)
			if err != nil {
				return fmt.Errorf("level %d: %w", level, err)
			}
			raw += int64(payload.Size())
			packed += int64(frame.Size())
		}
	}
	ratio := 1.0
	if packed > 0 {
		ratio = float64(raw) / float64(packed)
	}
	fmt.Printf("  Codec %s (%s): %d -> %d bytes (%.2fx)\n", codec, format, raw, packed, ratio)
	return nil
}
