// Command optic embeds payloads into the low bits of PNG/BMP images,
// extracts them again, and serves the same operations as a dead-drop
// HTTP/3 API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zsiec/optic/certs"
	"github.com/zsiec/optic/drop"
	"github.com/zsiec/optic/media"
	"github.com/zsiec/optic/payload"
	"github.com/zsiec/optic/stego"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "embed":
		err = runEmbed(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  optic embed   -out stego.png [-cover cover.png] [-message text | -payload file] [-z]
  optic extract -in stego.png [-out file]
  optic serve   [-addr :4443]
  optic version
`)
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	coverPath := fs.String("cover", "", "cover image (PNG or BMP); a gray 256x256 cover is generated when omitted")
	outPath := fs.String("out", "", "output image path; extension selects PNG or BMP")
	message := fs.String("message", "", "payload text")
	payloadPath := fs.String("payload", "", "payload file (overrides -message)")
	compress := fs.Bool("z", false, "zstd-compress the payload before embedding")
	fs.Parse(args)

	if *outPath == "" {
		return errors.New("-out is required")
	}

	data, err := embedInput(*payloadPath, *message)
	if err != nil {
		return err
	}
	if *compress {
		data = payload.Compress(data)
	}

	frame, err := loadCover(*coverPath)
	if err != nil {
		return err
	}

	c, err := stego.NewCarrier(uint32(frame.Width), uint32(frame.Height), stego.Config{})
	if err != nil {
		return err
	}
	c.IngestFrame(frame.Pix)
	if err := c.InjectPayload(data); err != nil {
		if errors.Is(err, stego.ErrCapacityExceeded) {
			return fmt.Errorf("payload of %d bytes exceeds cover capacity of %d bytes: %w",
				len(data), c.Capacity(), err)
		}
		return err
	}

	out := &media.Frame{Width: frame.Width, Height: frame.Height, Pix: c.PixelData()}
	if err := writeImage(*outPath, out); err != nil {
		return err
	}
	slog.Info("payload embedded",
		"bytes", len(data),
		"cover", fmt.Sprintf("%dx%d", frame.Width, frame.Height),
		"out", *outPath,
	)
	return nil
}

func embedInput(payloadPath, message string) ([]byte, error) {
	if payloadPath != "" {
		data, err := os.ReadFile(payloadPath)
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		return data, nil
	}
	if message != "" {
		return []byte(message), nil
	}
	return nil, errors.New("one of -message or -payload is required")
}

// loadCover reads the cover image, or fabricates a flat gray 256×256
// frame when no path is given so the tool can self-test without assets.
func loadCover(path string) (*media.Frame, error) {
	if path == "" {
		pix := make([]byte, 256*256*4)
		for i := range pix {
			pix[i] = 128
		}
		return &media.Frame{Width: 256, Height: 256, Pix: pix}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cover: %w", err)
	}
	defer f.Close()
	return media.Decode(f)
}

func writeImage(path string, frame *media.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return frame.EncodeBMP(f)
	default:
		return frame.EncodePNG(f)
	}
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	inPath := fs.String("in", "", "stego image (PNG or BMP)")
	outPath := fs.String("out", "", "payload output file; stdout when omitted")
	fs.Parse(args)

	if *inPath == "" {
		return errors.New("-in is required")
	}
	f, err := os.Open(*inPath)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	frame, err := media.Decode(f)
	if err != nil {
		return err
	}
	c, err := stego.NewCarrier(uint32(frame.Width), uint32(frame.Height), stego.Config{})
	if err != nil {
		return err
	}
	c.IngestFrame(frame.Pix)

	data, err := c.ExtractPayload()
	if err != nil {
		return err
	}
	data, err = payload.MaybeDecompress(data)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *outPath != "" {
		out, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer out.Close()
		w = out
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", envOr("ADDR", ":4443"), "listen address for HTTP/3 and HTTPS")
	fs.Parse(args)

	slog.Info("generating self-signed certificate")
	cert, err := certs.Generate(30 * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("generating cert: %w", err)
	}
	slog.Info("certificate generated",
		"fingerprint", cert.FingerprintBase64(),
		"expires", cert.NotAfter.Format(time.RFC3339),
	)

	srv, err := drop.NewServer(drop.ServerConfig{Addr: *addr, Cert: cert})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("optic drop server starting", "version", version, "addr", *addr)
	return srv.Start(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
