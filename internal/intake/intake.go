// Package intake acquires document page texts from the filesystem. PDF
// transcripts go through pdftotext; plain .txt files are taken as
// pre-extracted page bundles with form-feed page breaks.
package intake

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/acadhub/transcript-hub/internal/application/command"
)

// Reader loads transcript documents from disk.
type Reader struct {
	pdftotext string
	timeout   time.Duration
}

// NewReader creates a Reader. pdftotextPath may be a bare binary name
// resolved via PATH.
func NewReader(pdftotextPath string, timeout time.Duration) *Reader {
	if pdftotextPath == "" {
		pdftotextPath = "pdftotext"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Reader{pdftotext: pdftotextPath, timeout: timeout}
}

// ReadDir loads every *.pdf and *.txt file in dir, in name order, one
// document per file.
func (r *Reader) ReadDir(ctx context.Context, dir string) ([]command.BatchDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read intake directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".txt":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]command.BatchDocument, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		pages, err := r.ReadFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		docs = append(docs, command.BatchDocument{Source: name, Pages: pages})
	}
	return docs, nil
}

// ReadFile loads one document's page texts.
func (r *Reader) ReadFile(ctx context.Context, path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return splitPages(string(data)), nil
	case ".pdf":
		text, err := r.extractPDF(ctx, path)
		if err != nil {
			return nil, err
		}
		return splitPages(text), nil
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

// extractPDF shells out to pdftotext, reading from the file and writing
// layout-preserved text to stdout. pdftotext emits a form feed per page break.
func (r *Reader) extractPDF(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.pdftotext, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// splitPages splits extracted text on form feeds, dropping trailing empty
// pages so a file without page breaks yields exactly one page.
func splitPages(text string) []string {
	parts := strings.Split(text, "\f")
	for len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
