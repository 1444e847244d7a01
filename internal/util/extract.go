package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"

	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

var ErrNoText = errors.New("no text extracted from document")

// PDFExtractor reads the text layer of a PDF and, when a page has none,
// falls back to OCR through the tesseract binary if it is installed.
type PDFExtractor struct {
	ocr    bool
	logger *zap.Logger
}

func NewPDFExtractor(ocr bool, log *zap.Logger) *PDFExtractor {
	return &PDFExtractor{ocr: ocr, logger: logger.Component(log, "pdf_extractor")}
}

func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	ocrReady := e.ocr && checkTesseract(ctx) == nil
	var fullText bytes.Buffer
	var lastErr error

	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		pageText, err := doc.Text(n)
		if err != nil {
			lastErr = fmt.Errorf("page %d: failed to read text: %w", n+1, err)
			e.logger.Debug("text layer unreadable", zap.Int("page", n+1), zap.Error(err))
		}
		pageText = strings.TrimSpace(pageText)

		if pageText == "" && ocrReady {
			pageText, err = ocrPage(ctx, doc, n)
			if err != nil {
				lastErr = err
				e.logger.Warn("ocr failed", zap.Int("page", n+1), zap.Error(err))
				continue
			}
		}

		if pageText != "" {
			fullText.WriteString(pageText)
			fullText.WriteString("\n\n")
		}
	}

	result := strings.TrimSpace(fullText.String())
	if result == "" {
		if lastErr != nil {
			return "", fmt.Errorf("%w: %w", ErrNoText, lastErr)
		}
		return "", ErrNoText
	}

	e.logger.Debug("pdf extracted", zap.Int("pages", doc.NumPage()), zap.Int("chars", len(result)))
	return result, nil
}

func ocrPage(ctx context.Context, doc *fitz.Document, n int) (string, error) {
	img, err := doc.Image(n)
	if err != nil {
		return "", fmt.Errorf("page %d: failed to extract image: %w", n+1, err)
	}

	tmpFile, err := os.CreateTemp("", "page-*.png")
	if err != nil {
		return "", fmt.Errorf("page %d: failed to create temp file: %w", n+1, err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := savePNG(tmpPath, img); err != nil {
		return "", fmt.Errorf("page %d: failed to save PNG: %w", n+1, err)
	}

	out, err := exec.CommandContext(ctx, "tesseract", tmpPath, "stdout", "-l", "eng").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("page %d: tesseract error: %w, output: %s", n+1, err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func checkTesseract(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "tesseract", "-v").CombinedOutput()
	if err != nil {
		return fmt.Errorf("tesseract not found or not executable: %w\nOutput: %s", err, string(out))
	}
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
