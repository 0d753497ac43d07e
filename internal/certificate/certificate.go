// Package certificate issues verification codes and renders certificate artifacts.
package certificate

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cx-lms-service/internal/domain"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// DateLayout formats completion dates, e.g. "November 22, 2024".
const DateLayout = "January 2, 2006"

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCode returns CX-<base36 millis>-<6 random base36>, upper-cased.
func NewCode(now time.Time) string {
	id := uuid.New()
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = codeAlphabet[int(id[i])%len(codeAlphabet)]
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	return strings.ToUpper("CX-" + stamp + "-" + string(suffix))
}

// VerificationURL is what the QR code on a certificate points at.
func VerificationURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/certificate/verify/" + url.PathEscape(code)
}

// Artifact is a rendered certificate.
type Artifact struct {
	ContentType string
	Body        []byte
	QRCode      []byte // PNG
}

// Generator renders a certificate and a scannable code for its verification URL.
type Generator interface {
	Render(ctx context.Context, cert domain.Certificate, verifyURL string) (Artifact, error)
}

// HTMLGenerator renders a standalone HTML page with the QR code inlined as a data URI.
type HTMLGenerator struct {
	tmpl   *template.Template
	qrSize int
}

func NewHTMLGenerator() *HTMLGenerator {
	return &HTMLGenerator{tmpl: pageTemplate, qrSize: 256}
}

func (g *HTMLGenerator) Render(ctx context.Context, cert domain.Certificate, verifyURL string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", domain.ErrArtifactGenerationFailed, err)
	}
	png, err := qrcode.Encode(verifyURL, qrcode.Medium, g.qrSize)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: qr code: %v", domain.ErrArtifactGenerationFailed, err)
	}

	var buf bytes.Buffer
	err = g.tmpl.Execute(&buf, pageData{
		Certificate: cert,
		VerifyURL:   verifyURL,
		QRDataURI:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: template: %v", domain.ErrArtifactGenerationFailed, err)
	}
	return Artifact{ContentType: "text/html; charset=utf-8", Body: buf.Bytes(), QRCode: png}, nil
}

type pageData struct {
	domain.Certificate
	VerifyURL string
	QRDataURI template.URL
}

var pageTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Certificate of Completion</title></head>
<body>
<main class="certificate">
  <h1>Certificate of Completion</h1>
  <p>This certifies that</p>
  <h2>{{.StudentName}}</h2>
  <p>has successfully completed</p>
  <h3>{{.ModuleTitle}}</h3>
  <p>Completed on {{.CompletionDate}}</p>
  {{with .Score}}<p>Final score: {{.}}%</p>{{end}}
  <img alt="Verification QR code" src="{{.QRDataURI}}">
  <p>Verification code: <code>{{.VerificationCode}}</code></p>
  <p><a href="{{.VerifyURL}}">{{.VerifyURL}}</a></p>
</main>
</body>
</html>
`))
