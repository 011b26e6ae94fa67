package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// loadTimeout is the hard ceiling on fetching and decoding a media
	// resource or its metadata.
	loadTimeout = 5 * time.Second

	// seekTimeout bounds the frame grab after a successful metadata load.
	seekTimeout = 5 * time.Second

	// sampleCount is how many pseudo-random pixels are averaged when
	// classifying a video frame.
	sampleCount = 100

	// maxSeekPosition is the preferred frame position in seconds; short
	// clips are sampled at half their duration instead.
	maxSeekPosition = 0.5
)

// Thumbnail geometry defaults.
const (
	DefaultWidth   = 320
	DefaultHeight  = 180
	DefaultQuality = 70
)

// Result is the outcome of probing one media item.
type Result struct {
	// IsBad marks the item as corrupt, unreadable or too dark.
	IsBad bool
	// Payload is the generated thumbnail, when one was produced. A bad
	// video frame still gets captured so the classification can be
	// cached and re-displayed if later unfiltered.
	Payload []byte
}

// Config controls thumbnail geometry and the video fast-exit switch.
type Config struct {
	Width   int
	Height  int
	Quality int

	// SkipVideo disables video probing entirely on resource-constrained
	// devices: video items resolve immediately as not-bad, no payload.
	SkipVideo bool
}

// DefaultConfig returns the standard probe configuration.
func DefaultConfig() Config {
	return Config{
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Quality: DefaultQuality,
	}
}

// Prober validates media items and produces thumbnails for them.
type Prober struct {
	cfg    Config
	client *http.Client

	// Seams for tests; default to the ffprobe/ffmpeg implementations.
	probeDuration func(ctx context.Context, url string) (float64, error)
	extractFrame  func(ctx context.Context, url string, position float64) ([]byte, error)
}

// New creates a Prober with the given configuration.
func New(cfg Config) *Prober {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Quality <= 0 {
		cfg.Quality = DefaultQuality
	}

	p := &Prober{
		cfg:    cfg,
		client: &http.Client{},
	}
	p.probeDuration = p.ffprobeDuration
	p.extractFrame = p.ffmpegFrame
	return p
}

// ProbeImage fetches and decodes the image at url, samples one
// representative pixel, and classifies the item. A fully transparent
// sample marks a corrupt placeholder; a sample darker than a positive
// threshold marks the item too dark. Load failures and timeouts read as
// bad. The image path never produces a payload.
func (p *Prober) ProbeImage(ctx context.Context, url string, threshold float64) Result {
	start := time.Now()
	defer func() { metrics.ProbeDuration.WithLabelValues("image").Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	data, err := p.fetch(ctx, url)
	if err != nil {
		logging.Debug("Image probe fetch failed for %s: %v", url, err)
		metrics.ProbeTotal.WithLabelValues("image", probeFailureLabel(err)).Inc()
		return Result{IsBad: true}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		logging.Debug("Image probe decode failed for %s: %v", url, err)
		metrics.ProbeTotal.WithLabelValues("image", "error").Inc()
		return Result{IsBad: true}
	}

	bounds := img.Bounds()
	r, g, b, a := img.At(bounds.Min.X+bounds.Dx()/2, bounds.Min.Y+bounds.Dy()/2).RGBA()
	if a == 0 {
		// Fully transparent sample: the host serves these as corrupt
		// markers.
		metrics.ProbeTotal.WithLabelValues("image", "bad").Inc()
		return Result{IsBad: true}
	}

	if threshold > 0 && luma(r, g, b) < threshold {
		metrics.ProbeTotal.WithLabelValues("image", "bad").Inc()
		return Result{IsBad: true}
	}

	metrics.ProbeTotal.WithLabelValues("image", "ok").Inc()
	return Result{}
}

// ProbeVideo validates the video at url and captures a thumbnail frame.
//
// The duration check fails closed: a zero or non-finite duration, or a
// metadata timeout, marks the item bad so unplayable entries never reach
// the player. The frame grab fails open: a seek timeout or grab failure
// resolves as not-bad with no payload, so slow devices do not hide
// legitimate content.
func (p *Prober) ProbeVideo(ctx context.Context, url string, threshold float64) Result {
	if p.cfg.SkipVideo {
		return Result{}
	}

	start := time.Now()
	defer func() { metrics.ProbeDuration.WithLabelValues("video").Observe(time.Since(start).Seconds()) }()

	metaCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	duration, err := p.probeDuration(metaCtx, url)
	cancel()
	if err != nil {
		logging.Debug("Video metadata probe failed for %s: %v", url, err)
		metrics.ProbeTotal.WithLabelValues("video", probeFailureLabel(err)).Inc()
		return Result{IsBad: true}
	}
	if duration <= 0 || math.IsInf(duration, 0) || math.IsNaN(duration) {
		metrics.ProbeTotal.WithLabelValues("video", "bad").Inc()
		return Result{IsBad: true}
	}

	position := math.Min(maxSeekPosition, duration/2)

	seekCtx, cancel := context.WithTimeout(ctx, seekTimeout)
	frame, err := p.extractFrame(seekCtx, url, position)
	cancel()
	if err != nil {
		logging.Debug("Video frame grab failed for %s: %v", url, err)
		metrics.ProbeTotal.WithLabelValues("video", probeFailureLabel(err)).Inc()
		return Result{}
	}

	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		logging.Debug("Video frame decode failed for %s: %v", url, err)
		metrics.ProbeTotal.WithLabelValues("video", "error").Inc()
		return Result{}
	}

	isBad := threshold > 0 && averageLuma(img, sampleCount) < threshold

	payload, err := p.thumbnail(frame, img)
	if err != nil {
		logging.Warn("Thumbnail encode failed for %s: %v", url, err)
		payload = nil
	}

	if isBad {
		metrics.ProbeTotal.WithLabelValues("video", "bad").Inc()
	} else {
		metrics.ProbeTotal.WithLabelValues("video", "ok").Inc()
	}
	return Result{IsBad: isBad, Payload: payload}
}

// fetch retrieves the resource at url, honoring ctx.
func (p *Prober) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close probe response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// ffprobeDuration reads the container duration in seconds.
func (p *Prober) ffprobeDuration(ctx context.Context, url string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		url,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	durStr := strings.TrimSpace(stdout.String())
	duration, err := strconv.ParseFloat(durStr, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", durStr, err)
	}
	return duration, nil
}

// ffmpegFrame grabs a single frame at position seconds as PNG bytes.
func (p *Prober) ffmpegFrame(ctx context.Context, url string, position float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.FormatFloat(position, 'f', 3, 64),
		"-i", url,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg error: %w - %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", url)
	}
	return stdout.Bytes(), nil
}

// thumbnail encodes the captured frame at the configured geometry, using
// the vips fast path when available and the pure-Go pipeline otherwise.
func (p *Prober) thumbnail(frame []byte, img image.Image) ([]byte, error) {
	if IsVipsAvailable() {
		payload, err := vipsThumbnail(frame, p.cfg.Width, p.cfg.Height, p.cfg.Quality)
		if err == nil {
			return payload, nil
		}
		logging.Debug("vips thumbnail failed, falling back to imaging: %v", err)
	}

	thumb := imaging.Fit(img, p.cfg.Width, p.cfg.Height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.cfg.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// luma converts a 16-bit RGBA sample to 8-bit perceived brightness.
func luma(r, g, b uint32) float64 {
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// averageLuma samples n pseudo-random pixels across the frame and returns
// their mean brightness. The generator is fixed-seed so a given frame
// always classifies the same way.
func averageLuma(img image.Image, n int) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 || n <= 0 {
		return 0
	}

	rng := rand.New(rand.NewSource(0x6c756d61))
	var total float64
	for i := 0; i < n; i++ {
		x := bounds.Min.X + rng.Intn(w)
		y := bounds.Min.Y + rng.Intn(h)
		r, g, b, _ := img.At(x, y).RGBA()
		total += luma(r, g, b)
	}
	return total / float64(n)
}

// probeFailureLabel distinguishes timeouts from other failures for
// metrics.
func probeFailureLabel(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

// CheckFFmpeg verifies that ffmpeg and ffprobe are present. Local video
// probing degrades to fail-open without them.
func CheckFFmpeg() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH", tool)
		}
	}
	return nil
}
