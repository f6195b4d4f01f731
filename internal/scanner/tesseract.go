package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TesseractRecognizer extracts card text by shelling out to the
// tesseract binary. The capture is written to a temp file because
// tesseract cannot read image data from stdin on every platform.
type TesseractRecognizer struct {
	// Binary overrides the executable name, mainly for tests.
	Binary string
	// Languages is the tesseract -l argument, e.g. "eng+deu".
	Languages string
}

func (t *TesseractRecognizer) RecognizeText(ctx context.Context, image []byte) (TextResult, error) {
	binary := t.Binary
	if binary == "" {
		binary = "tesseract"
	}

	dir, err := os.MkdirTemp("", "cardkeep-ocr-")
	if err != nil {
		return TextResult{}, fmt.Errorf("create ocr workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "capture.png")
	if err := os.WriteFile(input, image, 0o600); err != nil {
		return TextResult{}, fmt.Errorf("stage capture: %w", err)
	}

	args := []string{input, "stdout"}
	if t.Languages != "" {
		args = append(args, "-l", t.Languages)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return TextResult{}, fmt.Errorf("run tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return TextResult{Lines: splitRecognizedText(stdout.String())}, nil
}

// splitRecognizedText breaks OCR output into trimmed non-empty lines.
func splitRecognizedText(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
