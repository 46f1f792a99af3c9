package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCaptureFromPixels_FlipsRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sc := NewScreenshotCapture(dir, "umapview")
	sc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

	// Two rows, bottom row red, top row blue.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := sc.CaptureFromPixels(pixels, 1, 2)
	if err != nil {
		t.Fatalf("CaptureFromPixels failed: %v", err)
	}
	if want := filepath.Join(dir, "umapview_2024-05-01_12-30-00.000.png"); name != want {
		t.Errorf("expected %s, got %s", want, name)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding screenshot: %v", err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); r != 0 || b != 0xffff {
		t.Errorf("expected blue on top, got r=%d b=%d", r, b)
	}
	if r, _, b, _ := img.At(0, 1).RGBA(); r != 0xffff || b != 0 {
		t.Errorf("expected red at the bottom, got r=%d b=%d", r, b)
	}
}

func TestCaptureFromPixels_SizeMismatch(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "x")
	_, err := sc.CaptureFromPixels(make([]byte, 7), 1, 2)
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("expected size mismatch error, got %v", err)
	}
}
