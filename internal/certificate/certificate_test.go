package certificate

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"cx-lms-service/internal/domain"
)

var codePattern = regexp.MustCompile(`^CX-[0-9A-Z]+-[0-9A-Z]{6}$`)

func TestNewCodeFormatAndUniqueness(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code := NewCode(now)
		if !codePattern.MatchString(code) {
			t.Fatalf("unexpected code format %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 190 {
		t.Fatalf("codes collide too often: %d unique of 200", len(seen))
	}
}

func TestVerificationURL(t *testing.T) {
	got := VerificationURL("https://learn.example.com/", "CX-ABC-123456")
	if got != "https://learn.example.com/certificate/verify/CX-ABC-123456" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestHTMLGeneratorRender(t *testing.T) {
	score := 92
	cert := domain.Certificate{
		ID:               "CX-ABC-123456",
		VerificationCode: "CX-ABC-123456",
		StudentName:      "Jordan <Lee>",
		ModuleTitle:      "Foundations of Customer Experience",
		CompletionDate:   "November 22, 2024",
		Score:            &score,
	}
	art, err := NewHTMLGenerator().Render(context.Background(), cert, "https://learn.example.com/certificate/verify/CX-ABC-123456")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(art.Body)
	if !strings.Contains(body, "Jordan &lt;Lee&gt;") {
		t.Fatalf("student name not escaped: %s", body)
	}
	if !strings.Contains(body, "Final score: 92%") || !strings.Contains(body, "data:image/png;base64,") {
		t.Fatalf("missing score or qr in body")
	}
	if !bytes.HasPrefix(art.QRCode, []byte("\x89PNG")) {
		t.Fatalf("qr code is not a PNG")
	}
}

func TestHTMLGeneratorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTMLGenerator().Render(ctx, domain.Certificate{}, "x")
	if !errors.Is(err, domain.ErrArtifactGenerationFailed) {
		t.Fatalf("expected artifact error, got %v", err)
	}
}
