package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/internal/server"
)

// apiClient talks to a running ragfuse server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// apiError is a non-2xx server response. Answer is set when the server still produced one.
type apiError struct {
	Status  int
	Message string
	Code    string
	Answer  *models.Answer
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *apiClient) do(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		apiErr := &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var payload struct {
			Error  string         `json:"error"`
			Code   string         `json:"code"`
			Answer *models.Answer `json:"answer"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
			apiErr.Answer = payload.Answer
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) ingest(inputs []*models.DocumentInput) (*models.IngestReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, in := range inputs {
		fw, err := mw.CreateFormFile(server.UploadField, in.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(in.Content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var report models.IngestReport
	if err := c.do(req, http.StatusCreated, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *apiClient) ask(question string) (*models.Answer, error) {
	body, err := json.Marshal(server.AskRequest{Question: question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/ask", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var answer models.Answer
	if err := c.do(req, http.StatusOK, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *apiClient) remove(filename string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/documents/"+url.PathEscape(filename), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

func (c *apiClient) status() (*models.Status, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var st models.Status
	if err := c.do(req, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *apiClient) watchDirectories() ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/watch/directories", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func (c *apiClient) addWatchDirectory(path string, sync bool) error {
	body, err := json.Marshal(map[string]interface{}{"path": path, "sync": sync})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/watch/directories", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, http.StatusCreated, nil)
}

func (c *apiClient) removeWatchDirectory(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}
