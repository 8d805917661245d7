package pdfx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vlaradar/internal/models"
)

func TestDownloadWritesTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	path, err := Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "%PDF"))
}

func TestDownloadRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestSelectFigure(t *testing.T) {
	_, ok := SelectFigure(nil)
	require.False(t, ok)

	imgs := []models.PDFImage{
		{Page: 2, Bytes: 90000},
		{Page: 5, Bytes: 40000},
	}
	fig, ok := SelectFigure(imgs)
	require.True(t, ok)
	require.Equal(t, 2, fig.Page)
}

func TestPageFromImageName(t *testing.T) {
	require.Equal(t, 3, pageFromImageName("paper_3_Im0.png"))
	require.Equal(t, 12, pageFromImageName("vlaradar-123_12_Im4.jpg"))
	require.Equal(t, 0, pageFromImageName("noise.png"))
}

func TestDataURL(t *testing.T) {
	u := DataURL("fig_1_Im0.jpg", []byte{0xFF, 0xD8, 0x01})
	require.True(t, strings.HasPrefix(u, "data:image/jpeg;base64,"))

	u = DataURL("fig_1_Im0.png", []byte{0x89, 0x50})
	require.True(t, strings.HasPrefix(u, "data:image/png;base64,"))
}
