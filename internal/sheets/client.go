// Package sheets implements grid.Store on top of the Google Sheets v4
// values API.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/sheetboard/internal/grid"
)

var _ grid.Store = (*Client)(nil)

// DefaultBaseURL is the Sheets API root.
const DefaultBaseURL = "https://sheets.googleapis.com"

// Client reads and writes one sheet of one spreadsheet.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	sheet         string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient creates a client. httpClient must carry the credentials, e.g.
// one returned by NewHTTPClient.
func NewClient(httpClient *http.Client, spreadsheetID, sheet string, opts ...Option) *Client {
	c := &Client{
		httpClient:    httpClient,
		baseURL:       DefaultBaseURL,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// valueRange is the Sheets API ValueRange resource.
type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

// ColumnName converts a 1-based column index to its A1 letters: 1 -> A, 27 -> AA.
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// a1 prefixes ref with the quoted sheet name.
func (c *Client) a1(ref string) string {
	if c.sheet == "" {
		return ref
	}
	return "'" + strings.ReplaceAll(c.sheet, "'", "''") + "'!" + ref
}

func (c *Client) valuesURL(rng string, params url.Values) string {
	u := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(rng))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) ReadCell(ctx context.Context, row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", &grid.StoreError{Op: "read cell", Row: row, Col: col, Kind: grid.ErrOutOfRange}
	}
	rng := c.a1(ColumnName(col) + strconv.Itoa(row))
	values, err := c.get(ctx, rng, "ROWS")
	if err != nil {
		return "", wrap("read cell", row, col, err)
	}
	if len(values) == 0 {
		return "", nil
	}
	return grid.Cell(values[0], 1), nil
}

func (c *Client) ReadRow(ctx context.Context, row int) ([]string, error) {
	if row < 1 {
		return nil, &grid.StoreError{Op: "read row", Row: row, Kind: grid.ErrOutOfRange}
	}
	rng := c.a1(fmt.Sprintf("%d:%d", row, row))
	values, err := c.get(ctx, rng, "ROWS")
	if err != nil {
		return nil, wrap("read row", row, 0, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (c *Client) ReadColumn(ctx context.Context, col int) ([]string, error) {
	if col < 1 {
		return nil, &grid.StoreError{Op: "read column", Col: col, Kind: grid.ErrOutOfRange}
	}
	name := ColumnName(col)
	values, err := c.get(ctx, c.a1(name+":"+name), "COLUMNS")
	if err != nil {
		return nil, wrap("read column", 0, col, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (c *Client) WriteCell(ctx context.Context, row, col int, text string) error {
	if row < 1 || col < 1 {
		return &grid.StoreError{Op: "write cell", Row: row, Col: col, Kind: grid.ErrOutOfRange}
	}
	rng := c.a1(ColumnName(col) + strconv.Itoa(row))
	body, err := json.Marshal(valueRange{
		Range:          rng,
		MajorDimension: "ROWS",
		Values:         [][]any{{text}},
	})
	if err != nil {
		return wrap("write cell", row, col, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.valuesURL(rng, url.Values{"valueInputOption": {"RAW"}}), bytes.NewReader(body))
	if err != nil {
		return wrap("write cell", row, col, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := c.do(req); err != nil {
		return wrap("write cell", row, col, err)
	}
	return nil
}

// get fetches rng and returns its values as text, trailing empties dropped
// by the API.
func (c *Client) get(ctx context.Context, rng, majorDimension string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.valuesURL(rng, url.Values{"majorDimension": {majorDimension}}), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("decoding sheets response: %w", err)
	}
	out := make([][]string, len(vr.Values))
	for i, line := range vr.Values {
		out[i] = make([]string, len(line))
		for j, v := range line {
			out[i][j] = cellText(v)
		}
	}
	return out, nil
}

// apiError is returned for non-2xx responses.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("sheets API error %d: %s", e.Status, e.Body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// wrap classifies err as an auth or availability failure.
func wrap(op string, row, col int, err error) error {
	kind := grid.ErrUnavailable
	var apiErr *apiError
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden):
		kind = grid.ErrAuth
	case errors.As(err, &retrieveErr):
		kind = grid.ErrAuth
	}
	return &grid.StoreError{Op: op, Row: row, Col: col, Kind: kind, Err: err}
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
