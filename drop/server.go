// Package drop implements the dead-drop server: an HTTPS + HTTP/3 REST
// API that embeds payloads into uploaded cover images and extracts them
// again. Each request gets its own carrier, so handlers need no shared
// mutable state beyond the listener itself.
package drop

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/optic/certs"
	"github.com/zsiec/optic/media"
	"github.com/zsiec/optic/payload"
	"github.com/zsiec/optic/stego"
)

const (
	defaultMaxUpload = 32 << 20 // covers a 2000×2000 RGBA frame with headroom

	// maxImageDim bounds cover dimensions per side. Beyond it the RGBA
	// buffer alone would pass 16 GiB, so requests claiming more are
	// rejected before any allocation happens.
	maxImageDim = 1 << 16
)

// ServerConfig configures a drop Server.
type ServerConfig struct {
	// Addr is the listen address, used for both the HTTP/3 (UDP) and
	// HTTPS fallback (TCP) listeners.
	Addr string

	// Cert is the TLS certificate served on both listeners.
	Cert *certs.CertInfo

	// Codec carries the stego parameters applied to every request.
	// The zero value selects the codec defaults.
	Codec stego.Config

	// MaxUploadBytes bounds request bodies. Zero selects a 32 MiB cap.
	MaxUploadBytes int64
}

// Server terminates the drop API on HTTP/3 with an HTTPS fallback.
type Server struct {
	config ServerConfig
	h3     *http3.Server
	tcp    *http.Server
}

// NewServer creates a drop Server with the given configuration.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Cert == nil {
		return nil, errors.New("drop: Cert is required")
	}
	if config.Addr == "" {
		return nil, errors.New("drop: Addr is required")
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaultMaxUpload
	}
	if _, err := stego.NewCarrier(1, 1, config.Codec); err != nil {
		return nil, err
	}
	return &Server{config: config}, nil
}

// Handler returns the REST API handler shared by both listeners.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/cert-hash", s.handleCertHash)
	mux.HandleFunc("GET /api/capacity", s.handleCapacity)
	mux.HandleFunc("POST /api/embed", s.handleEmbed)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type certHashResponse struct {
	Hash string `json:"hash"`
	Addr string `json:"addr"`
}

func (s *Server) handleCertHash(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, certHashResponse{
		Hash: s.config.Cert.FingerprintBase64(),
		Addr: s.config.Addr,
	})
}

type capacityResponse struct {
	Width         int `json:"width"`
	Height        int `json:"height"`
	CapacityBytes int `json:"capacityBytes"`
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.Atoi(r.URL.Query().Get("width"))
	height, errH := strconv.Atoi(r.URL.Query().Get("height"))
	if errW != nil || errH != nil || width <= 0 || height <= 0 ||
		width > maxImageDim || height > maxImageDim {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("width and height must be positive integers no larger than %d", maxImageDim))
		return
	}
	capacity, err := stego.Capacity(uint32(width), uint32(height), s.config.Codec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, capacityResponse{
		Width:         width,
		Height:        height,
		CapacityBytes: capacity,
	})
}

// readCover decodes the multipart cover image and builds a carrier
// holding its pixels. Dimensions are checked against the header before
// the pixel data is decoded, so an image bomb declaring enormous
// dimensions inside a small file is rejected without allocating its
// buffer.
func (s *Server) readCover(r *http.Request, field string) (*stego.Carrier, *media.Frame, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("missing %q image field: %w", field, err)
	}
	defer file.Close()

	header, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %q image header: %w", field, err)
	}
	if header.Width <= 0 || header.Height <= 0 ||
		header.Width > maxImageDim || header.Height > maxImageDim {
		return nil, nil, fmt.Errorf("image dimensions %d×%d exceed the %d per-side limit",
			header.Width, header.Height, maxImageDim)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("rewinding %q image part: %w", field, err)
	}

	frame, err := media.Decode(file)
	if err != nil {
		return nil, nil, err
	}
	c, err := stego.NewCarrier(uint32(frame.Width), uint32(frame.Height), s.config.Codec)
	if err != nil {
		return nil, nil, err
	}
	c.IngestFrame(frame.Pix)
	return c, frame, nil
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	carrier, frame, err := s.readCover(r, "cover")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := embedData(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if compress, _ := strconv.ParseBool(r.FormValue("compress")); compress {
		data = payload.Compress(data)
	}

	if err := carrier.InjectPayload(data); err != nil {
		if errors.Is(err, stego.ErrCapacityExceeded) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("payload of %d bytes exceeds cover capacity of %d", len(data), carrier.Capacity()))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := &media.Frame{Width: frame.Width, Height: frame.Height, Pix: carrier.PixelData()}
	w.Header().Set("Content-Type", "image/png")
	if err := out.EncodePNG(w); err != nil {
		slog.Error("writing stego image", "error", err)
		return
	}
	slog.Debug("embedded payload",
		"bytes", len(data),
		"cover", fmt.Sprintf("%dx%d", frame.Width, frame.Height),
	)
}

// embedData pulls the payload from the request: a "payload" file part
// when present, otherwise the "message" form value.
func embedData(r *http.Request) ([]byte, error) {
	if file, _, err := r.FormFile("payload"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("reading payload part: %w", err)
		}
		return data, nil
	}
	if msg := r.FormValue("message"); msg != "" {
		return []byte(msg), nil
	}
	return nil, errors.New("request carries neither a payload part nor a message field")
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	carrier, _, err := s.readCover(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := carrier.ExtractPayload()
	switch {
	case errors.Is(err, stego.ErrNoPayload):
		writeError(w, http.StatusNotFound, "no payload embedded in image")
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	data, err = payload.MaybeDecompress(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("writing extracted payload", "error", err)
	}
}

// Start launches the HTTP/3 and HTTPS listeners and blocks until the
// context is cancelled or either listener fails.
func (s *Server) Start(ctx context.Context) error {
	handler := s.Handler()
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{s.config.Cert.TLSCert},
	}

	s.h3 = &http3.Server{
		Addr:      s.config.Addr,
		Handler:   handler,
		TLSConfig: tlsConfig,
		QUICConfig: &quic.Config{
			MaxIdleTimeout: 30 * time.Second,
		},
	}
	s.tcp = &http.Server{
		Addr:      s.config.Addr,
		Handler:   handler,
		TLSConfig: tlsConfig.Clone(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP/3 listener up", "addr", s.config.Addr)
		if err := s.h3.ListenAndServe(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("drop: http3 listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("HTTPS listener up", "addr", s.config.Addr)
		if err := s.tcp.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("drop: https listener: %w", err)
		}
		return nil
	})

	stop := context.AfterFunc(ctx, func() {
		s.h3.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.tcp.Shutdown(shutdownCtx)
	})
	defer stop()

	return g.Wait()
}
