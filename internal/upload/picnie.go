package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Client uploads images to the Picnie asset API and returns their public
// URLs.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

type uploadResponse struct {
	ImageURL string `json:"image_url"`
}

func NewClient(url, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, apiKey: apiKey, http: httpClient}
}

// Upload posts the file at path as the multipart field "image".
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	body, contentType, err := multipartFile(path)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		logrus.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"url":         c.url,
		}).Debug("Image host rejected upload")
		return "", fmt.Errorf("upload %s: status %d", filepath.Base(path), resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: decode response: %w", filepath.Base(path), err)
	}
	if out.ImageURL == "" {
		return "", fmt.Errorf("upload %s: response has no image_url", filepath.Base(path))
	}
	return out.ImageURL, nil
}

func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("upload: read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
