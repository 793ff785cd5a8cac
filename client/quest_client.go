// Package client calls the quest entry HTTP API. It satisfies
// easteregg.Gateway so a Session can run against a remote service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"quest-entry-service/models"
	"quest-entry-service/store"
	"quest-entry-service/utils"
)

const (
	msgNotFound     = "Entry not found."
	msgWalletExists = "Wallet already exists."
	msgEmailExists  = "Email already exists."
	msgUpdated      = "Entry updated successfully."
	msgUpToDate     = "Entry was already up-to-date."
)

// StatusError is a non-success response the client could not map.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("quest api returned %d: %s", e.Code, e.Message)
}

type QuestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *QuestClient {
	return &QuestClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: utils.HTTPClient,
	}
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *QuestClient) do(ctx context.Context, method, path string, query url.Values, in any) (int, []byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call quest api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func statusError(code int, raw []byte) error {
	var m messageBody
	_ = json.Unmarshal(raw, &m)
	if m.Message == "" {
		m.Message = strings.TrimSpace(string(raw))
	}
	return &StatusError{Code: code, Message: m.Message}
}

// GetEntryByWallet returns store.ErrNotFound for the "Entry not found." body,
// whether it arrives as a 200 or a 404.
func (c *QuestClient) GetEntryByWallet(ctx context.Context, wallet string) (*models.Entry, error) {
	code, raw, err := c.do(ctx, http.MethodGet, "/get-entries", url.Values{"walletAddress": {wallet}}, nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if code != http.StatusOK {
		return nil, statusError(code, raw)
	}

	var out struct {
		models.Entry
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	if out.WalletAddress == "" {
		if out.Message == msgNotFound {
			return nil, store.ErrNotFound
		}
		return nil, &StatusError{Code: code, Message: out.Message}
	}
	return &out.Entry, nil
}

// CreateEntry maps 409 bodies to *store.ConflictError. The API does not echo
// the stored row, so the returned entry carries only the submitted fields.
func (c *QuestClient) CreateEntry(ctx context.Context, in store.NewEntry) (*models.Entry, error) {
	in = in.Normalize()
	req := map[string]any{
		"email":             in.Email,
		"walletAddress":     in.WalletAddress,
		"easterEggUnlocked": in.EasterEggUnlocked,
	}
	code, raw, err := c.do(ctx, http.MethodPost, "/create-entry", nil, req)
	if err != nil {
		return nil, err
	}

	switch code {
	case http.StatusOK, http.StatusCreated:
		return &models.Entry{
			Email:             in.Email,
			WalletAddress:     in.WalletAddress,
			EasterEggUnlocked: in.EasterEggUnlocked,
		}, nil
	case http.StatusConflict:
		var m messageBody
		_ = json.Unmarshal(raw, &m)
		if m.Message == msgEmailExists {
			return nil, &store.ConflictError{Field: store.FieldEmail}
		}
		return nil, &store.ConflictError{Field: store.FieldWallet}
	default:
		return nil, statusError(code, raw)
	}
}

// MarkSolved confirms the solve for wallet.
func (c *QuestClient) MarkSolved(ctx context.Context, wallet string) (store.SolveResult, error) {
	code, raw, err := c.do(ctx, http.MethodPost, "/update-entry", nil, map[string]string{"walletAddress": wallet})
	if err != nil {
		return 0, err
	}
	if code == http.StatusNotFound {
		return 0, store.ErrNotFound
	}
	if code != http.StatusOK {
		return 0, statusError(code, raw)
	}

	var m messageBody
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	switch m.Message {
	case msgUpdated:
		return store.SolveUpdated, nil
	case msgUpToDate:
		return store.SolveNoChange, nil
	default:
		return 0, &StatusError{Code: code, Message: m.Message}
	}
}

// SolvedRank fetches the rank the wallet would take if it solved now.
func (c *QuestClient) SolvedRank(ctx context.Context, wallet string) (store.Rank, error) {
	code, raw, err := c.do(ctx, http.MethodGet, "/get-rank", url.Values{"walletAddress": {wallet}}, nil)
	if err != nil {
		return store.Rank{}, err
	}
	if code != http.StatusOK {
		return store.Rank{}, statusError(code, raw)
	}

	var r store.Rank
	if err := json.Unmarshal(raw, &r); err != nil {
		return store.Rank{}, fmt.Errorf("failed to decode rank: %w", err)
	}
	return r, nil
}
