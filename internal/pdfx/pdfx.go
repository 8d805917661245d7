// Package pdfx downloads paper PDFs and extracts their text and figures
// for full-content review.
package pdfx

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"vlaradar/internal/models"
	"vlaradar/internal/util"
)

const downloadUserAgent = "Mozilla/5.0 (compatible; vlaradar/1.0)"

// Images smaller than this are icons and logos, not figures.
const minImageBytes = 2048

var client = &http.Client{Timeout: 60 * time.Second}

// Download fetches a PDF into a temp file and returns its path. The caller
// removes the file when done.
func Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build pdf request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download pdf: http %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "vlaradar-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp pdf: %w", err)
	}
	return tmp.Name(), nil
}

// ExtractText walks pages up to maxPages and returns sanitized plain text,
// capped at maxChars runes.
func ExtractText(path string, maxPages, maxChars int) (models.PDFContent, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return models.PDFContent{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := total
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)
		b.WriteString(text)
	}

	out := models.PDFContent{Pages: total}
	text := util.SanitizeText(b.String())
	if maxChars > 0 {
		r := []rune(text)
		if len(r) > maxChars {
			text = string(r[:maxChars])
			out.Truncated = true
		}
	}
	if pages < total {
		out.Truncated = true
	}
	if strings.TrimSpace(text) == "" {
		return out, util.ErrNoExtractableText
	}
	out.Text = text
	return out, nil
}

var imagePageRe = regexp.MustCompile(`_(\d+)_[^_]*\.\w+$`)

// ExtractImages pulls embedded images from the first maxPages pages and
// keeps the maxImages largest ones as data URLs. Tiny images are dropped.
func ExtractImages(path string, maxPages, maxImages int) ([]models.PDFImage, error) {
	outDir, err := os.MkdirTemp("", "vlaradar-img-*")
	if err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	var selected []string
	if maxPages > 0 {
		selected = []string{"1-" + strconv.Itoa(maxPages)}
	}
	if err := api.ExtractImagesFile(path, outDir, selected, nil); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	images := make([]models.PDFImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() < minImageBytes {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		images = append(images, models.PDFImage{
			Page:    pageFromImageName(entry.Name()),
			Bytes:   len(data),
			DataURL: DataURL(entry.Name(), data),
		})
	}

	// Largest first; big images are the architecture figures.
	sort.SliceStable(images, func(i, j int) bool { return images[i].Bytes > images[j].Bytes })
	if maxImages > 0 && len(images) > maxImages {
		images = images[:maxImages]
	}
	return images, nil
}

// SelectFigure picks the best framework-figure candidate from extracted
// images. Candidates arrive largest-first, so the head of the list wins.
func SelectFigure(images []models.PDFImage) (models.PDFImage, bool) {
	if len(images) == 0 {
		return models.PDFImage{}, false
	}
	return images[0], true
}

func pageFromImageName(name string) int {
	m := imagePageRe.FindStringSubmatch(name)
	if len(m) != 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func DataURL(filename string, data []byte) string {
	mime := "image/png"
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".tif", ".tiff":
		mime = "image/tiff"
	case ".png":
		mime = "image/png"
	default:
		if bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
			mime = "image/jpeg"
		}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
