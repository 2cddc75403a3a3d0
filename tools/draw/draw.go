package draw

import (
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FileName is the SVG artifact written on every draw call.
	FileName = "rectangle.svg"

	// MaxDimension bounds the canvas so a bad argument cannot produce an
	// absurd file.
	MaxDimension = 4096

	DefaultWidth  = 400
	DefaultHeight = 300
)

// Tool renders rectangles as SVG files. It replaces a desktop canvas: the
// artifact can be opened by any browser.
type Tool struct {
	dir    string
	logger *log.Logger
}

// New creates a draw tool writing artifacts under dir.
func New(dir string) *Tool {
	return &Tool{
		dir:    dir,
		logger: log.New(log.Writer(), "[DRAW] ", log.LstdFlags),
	}
}

// Rectangle renders a width x height rectangle, optionally with text centered
// inside it, and returns a printable summary plus the artifact path.
func (t *Tool) Rectangle(width, height int, text string) (string, string, error) {
	if width <= 0 || height <= 0 {
		return "", "", fmt.Errorf("rectangle dimensions must be positive, got %dx%d", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return "", "", fmt.Errorf("rectangle dimensions exceed %d, got %dx%d", MaxDimension, width, height)
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating artifacts dir: %w", err)
	}
	path := filepath.Join(t.dir, FileName)

	svg := renderSVG(width, height, text)
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", path, err)
	}
	t.logger.Printf("Drew %dx%d rectangle to %s", width, height, path)

	output := fmt.Sprintf("Drew a %dx%d rectangle", width, height)
	if strings.TrimSpace(text) != "" {
		output += fmt.Sprintf(" containing %q", text)
	}
	return output, path, nil
}

func renderSVG(width, height int, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	b.WriteString("\n")
	fmt.Fprintf(&b, `  <rect x="5" y="5" width="%d" height="%d" fill="white" stroke="black" stroke-width="3"/>`, width-10, height-10)
	b.WriteString("\n")
	if strings.TrimSpace(text) != "" {
		fmt.Fprintf(&b, `  <text x="%d" y="%d" text-anchor="middle" dominant-baseline="middle" font-family="Arial" font-size="20">%s</text>`,
			width/2, height/2, html.EscapeString(text))
		b.WriteString("\n")
	}
	b.WriteString("</svg>\n")
	return b.String()
}
