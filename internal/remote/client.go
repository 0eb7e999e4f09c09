// Package remote talks to the Firebase-style JSON collection that mirrors
// the local task store. Every task lives at <root>/<uuid>.json and the whole
// collection at <root>.json.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
)

const defaultUserAgent = "task-sync/1.0"

type Client struct {
	root      *url.URL
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a client for the collection rooted at rawRoot, e.g.
// "https://tasks-8d69f.firebaseio.com/tasks". A trailing slash or ".json" is ignored.
func NewClient(rawRoot string, logger *zap.Logger, opts ...Option) (*Client, error) {
	root, err := url.Parse(strings.TrimSuffix(strings.TrimSuffix(rawRoot, "/"), ".json"))
	if err != nil {
		return nil, fmt.Errorf("parse remote root: %w", err)
	}
	if root.Scheme != "http" && root.Scheme != "https" {
		return nil, fmt.Errorf("remote root %q: scheme must be http or https", rawRoot)
	}

	c := &Client{
		root:      root,
		http:      http.DefaultClient,
		userAgent: defaultUserAgent,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CollectionURL is <root>.json.
func (c *Client) CollectionURL() string {
	u := *c.root
	u.Path += ".json"
	return u.String()
}

// ResourceURL is <root>/<UUID>.json.
func (c *Client) ResourceURL(id uuid.UUID) string {
	return c.root.JoinPath(model.FormatIdentifier(id) + ".json").String()
}

// FetchCollection downloads the whole collection. A single undecodable
// element fails the whole fetch.
func (c *Client) FetchCollection(ctx context.Context) (map[string]model.TaskRepresentation, error) {
	const op = "remote.fetch_collection"

	body, err := c.do(ctx, op, http.MethodGet, c.CollectionURL(), nil)
	if err != nil {
		return nil, err
	}

	var collection map[string]model.TaskRepresentation
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, errs.E(errs.ErrDecode, op, err)
	}
	if collection == nil {
		// an empty Firebase node is served as null
		collection = make(map[string]model.TaskRepresentation)
	}

	c.logger.Debug("fetched remote collection", zap.Int("count", len(collection)))
	return collection, nil
}

// Put upserts rep at the resource keyed by id.
func (c *Client) Put(ctx context.Context, id uuid.UUID, rep model.TaskRepresentation) error {
	const op = "remote.put"

	payload, err := json.Marshal(rep)
	if err != nil {
		return errs.E(errs.ErrEncode, op, err)
	}

	_, err = c.do(ctx, op, http.MethodPut, c.ResourceURL(id), payload)
	return err
}

// Delete removes the resource keyed by id. A missing resource is not an error.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "remote.delete"

	_, err := c.do(ctx, op, http.MethodDelete, c.ResourceURL(id), nil)
	if errs.StatusCode(err) == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errs.E(errs.ErrNetwork, op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	c.logger.Debug("remote request", zap.String("method", method), zap.String("url", target))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.E(errs.ErrNetwork, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.E(errs.ErrNetwork, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.E(errs.ErrNetwork, op, &errs.StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
		})
	}
	return data, nil
}
