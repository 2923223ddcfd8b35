package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Jane_Doe_birthday.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))
	return path
}

func TestUpload(t *testing.T) {
	router := gin.New()
	router.POST("/upload-asset", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "secret" {
			c.Status(http.StatusUnauthorized)
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		f, _ := fh.Open()
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "jpeg-bytes" || fh.Filename != "Jane_Doe_birthday.jpg" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"image_url": "https://cdn.example/Jane.jpg"})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	url, err := NewClient(srv.URL+"/upload-asset", "secret", srv.Client()).Upload(context.Background(), writeFile(t))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/Jane.jpg", url)

	_, err = NewClient(srv.URL+"/upload-asset", "wrong", srv.Client()).Upload(context.Background(), writeFile(t))
	assert.ErrorContains(t, err, "status 401")
}

func TestUploadRejectsMalformedResponses(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"missing field": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			url, err := NewClient(srv.URL, "k", srv.Client()).Upload(context.Background(), writeFile(t))
			assert.Error(t, err)
			assert.Empty(t, url)
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", "k", nil).Upload(context.Background(), filepath.Join(t.TempDir(), "none.jpg"))
	assert.Error(t, err)
}
