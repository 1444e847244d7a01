package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	ErrEmptyReference      = errors.New("resume reference is empty")
	ErrUnsupportedFormat   = errors.New("resume is neither PDF nor plain text")
	ErrReferenceNotAllowed = errors.New("resume reference is outside the allowed sources")
)

const (
	defaultFetchTimeout = 15 * time.Second
	maxResumeBytes      = 10 << 20
)

var pdfMagic = []byte("%PDF")

// TextExtractor turns PDF bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// ResumeSources limits where resumes may be read from. With no Root local
// references are refused; with no AllowedHosts remote ones are.
type ResumeSources struct {
	FetchTimeout time.Duration
	// Root is the directory local references resolve against.
	Root         string
	AllowedHosts []string
}

// ResumeReader resolves a resume reference (http(s) URL on an allowed host,
// or a path relative to the resume root) into plain text.
type ResumeReader struct {
	client       *resty.Client
	extractor    TextExtractor
	root         string
	allowedHosts []string
	logger       *zap.Logger
}

func NewResumeReader(extractor TextExtractor, sources ResumeSources, log *zap.Logger) *ResumeReader {
	timeout := sources.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	hosts := make([]string, 0, len(sources.AllowedHosts))
	for _, h := range sources.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3), resty.DomainCheckRedirectPolicy(hosts...))
	return &ResumeReader{
		client:       client,
		extractor:    extractor,
		root:         sources.Root,
		allowedHosts: hosts,
		logger:       logger.Component(log, "resume_reader"),
	}
}

// CheckReference reports ErrReferenceNotAllowed for references that point
// outside the configured sources. It does no I/O.
func (r *ResumeReader) CheckReference(reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrEmptyReference
	}
	if u, ok := remoteURL(reference); ok {
		if !slices.Contains(r.allowedHosts, strings.ToLower(u.Hostname())) {
			return fmt.Errorf("%w: host %q", ErrReferenceNotAllowed, u.Hostname())
		}
		return nil
	}
	if r.root == "" || !filepath.IsLocal(reference) {
		return ErrReferenceNotAllowed
	}
	return nil
}

func (r *ResumeReader) ReadText(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if err := r.CheckReference(reference); err != nil {
		return "", err
	}

	data, err := r.fetch(ctx, reference)
	if err != nil {
		return "", err
	}
	return r.Text(ctx, data)
}

// Text converts raw resume bytes, detecting PDF by its magic header.
func (r *ResumeReader) Text(ctx context.Context, data []byte) (string, error) {
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic) {
		if r.extractor == nil {
			return "", fmt.Errorf("%w: no pdf extractor configured", ErrUnsupportedFormat)
		}
		text, err := r.extractor.ExtractText(ctx, data)
		if err != nil {
			return "", fmt.Errorf("extract pdf: %w", err)
		}
		return text, nil
	}
	if !utf8.Valid(data) {
		return "", ErrUnsupportedFormat
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: document is empty", ErrUnsupportedFormat)
	}
	return text, nil
}

func (r *ResumeReader) fetch(ctx context.Context, reference string) ([]byte, error) {
	if _, ok := remoteURL(reference); ok {
		resp, err := r.client.R().SetContext(ctx).Get(reference)
		if err != nil {
			return nil, fmt.Errorf("fetch resume: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch resume: unexpected status %s", resp.Status())
		}
		r.logger.Debug("resume fetched", zap.String("url", reference), zap.Int("bytes", len(resp.Body())))
		return resp.Body(), nil
	}

	// os.Root refuses paths that escape the root, symlinks included.
	root, err := os.OpenRoot(r.root)
	if err != nil {
		return nil, fmt.Errorf("open resume root: %w", err)
	}
	defer root.Close()
	f, err := root.Open(filepath.Clean(reference))
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxResumeBytes))
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	return data, nil
}

func remoteURL(reference string) (*url.URL, bool) {
	if !strings.HasPrefix(reference, "http://") && !strings.HasPrefix(reference, "https://") {
		return nil, false
	}
	u, err := url.Parse(reference)
	if err != nil {
		return &url.URL{}, true
	}
	return u, true
}
