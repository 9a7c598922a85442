package cdn

import (
	"strings"
	"testing"
	"time"

	"github.com/canvasgrid/texload/internal/media"
)

var cdnHosts = []string{"ik.imagekit.io"}

func TestVideoURLQualityTiers(t *testing.T) {
	base := "https://ik.imagekit.io/demo/clip.mp4"
	tests := []struct {
		name string
		opts media.Options
		want string
	}{
		{"low", media.Options{Quality: media.QualityLow}, base + "?tr=w-640%2Cq-50%2Cdu-15"},
		{"medium", media.Options{Quality: media.QualityMedium}, base + "?tr=w-1280%2Cq-70%2Cdu-30"},
		{"high uncapped duration", media.Options{Quality: media.QualityHigh}, base + "?tr=w-1920%2Cq-85"},
		{"default is medium", media.Options{}, base + "?tr=w-1280%2Cq-70%2Cdu-30"},
		{"width override", media.Options{Quality: media.QualityMedium, Width: 800}, base + "?tr=w-800%2Cq-70%2Cdu-30"},
		{"duration override", media.Options{Quality: media.QualityHigh, MaxDuration: 10 * time.Second}, base + "?tr=w-1920%2Cq-85%2Cdu-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VideoURL(base, tt.opts, cdnHosts); got != tt.want {
				t.Errorf("VideoURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVideoURLPurity(t *testing.T) {
	in := "https://ik.imagekit.io/demo/clip.mp4"
	first := VideoURL(in, media.Options{Quality: media.QualityMedium}, cdnHosts)
	for i := 0; i < 5; i++ {
		if got := VideoURL(in, media.Options{Quality: media.QualityMedium}, cdnHosts); got != first {
			t.Fatalf("derivation not deterministic: %q vs %q", got, first)
		}
	}
}

func TestVideoURLNoDoubleTransform(t *testing.T) {
	already := "https://ik.imagekit.io/demo/clip.mp4?tr=w-640%2Cq-50"
	if got := VideoURL(already, media.Options{Quality: media.QualityHigh}, cdnHosts); got != already {
		t.Errorf("already-transformed URL must pass through unchanged, got %q", got)
	}
}

func TestVideoURLForeignHostUnchanged(t *testing.T) {
	in := "https://other.example/clip.mp4"
	if got := VideoURL(in, media.Options{Quality: media.QualityLow}, cdnHosts); got != in {
		t.Errorf("non-CDN URL must pass through unchanged, got %q", got)
	}
}

func TestThumbnailURL(t *testing.T) {
	in := "https://ik.imagekit.io/demo/clip.mp4"
	got := ThumbnailURL(in, cdnHosts)
	if !strings.HasSuffix(got, "/clip.mp4/ik-thumbnail.jpg") {
		t.Errorf("ThumbnailURL = %q", got)
	}
	// Idempotent.
	if again := ThumbnailURL(got, cdnHosts); again != got {
		t.Errorf("thumbnail of a thumbnail changed: %q", again)
	}
	// Foreign host untouched.
	foreign := "https://other.example/clip.mp4"
	if got := ThumbnailURL(foreign, cdnHosts); got != foreign {
		t.Errorf("foreign host thumbnail = %q", got)
	}
}

func TestIsCDNURL(t *testing.T) {
	tests := []struct {
		u    string
		want bool
	}{
		{"https://ik.imagekit.io/demo/a.mp4", true},
		{"https://sub.ik.imagekit.io/a.mp4", true},
		{"https://ik.imagekit.io.evil.example/a.mp4", false},
		{"https://example.com/a.mp4", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := IsCDNURL(tt.u, cdnHosts); got != tt.want {
			t.Errorf("IsCDNURL(%q) = %v, want %v", tt.u, got, tt.want)
		}
	}
}
