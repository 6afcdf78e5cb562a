// Package nutrition looks up per-100 g nutrient values in Open Food Facts.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoMatch means the search returned no product with usable energy data.
var ErrNoMatch = errors.New("no nutrition data found")

// Facts are nutrient densities per 100 g (or 100 ml) of a product.
type Facts struct {
	ProductName string
	Calories    float64
	Protein     float64
	Carbs       float64
	Fat         float64
}

// Product is one search candidate.
type Product struct {
	Name       string     `json:"product_name"`
	Nutriments nutriments `json:"nutriments"`
}

type nutriments struct {
	EnergyKcal100g    flexFloat `json:"energy-kcal_100g"`
	Proteins100g      flexFloat `json:"proteins_100g"`
	Carbohydrates100g flexFloat `json:"carbohydrates_100g"`
	Fat100g           flexFloat `json:"fat_100g"`
}

// flexFloat accepts a JSON number, a numeric string, an empty string or null.
// Open Food Facts mixes all four across products.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type searchResponse struct {
	Count    int       `json:"count"`
	Products []Product `json:"products"`
}

// Client searches the Open Food Facts database.
type Client struct {
	baseURL  string
	pageSize int
	client   *http.Client
	log      *zap.Logger
}

// NewClient returns a client for the Open Food Facts instance at baseURL.
func NewClient(baseURL string, pageSize int, log *zap.Logger) *Client {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// Search returns the raw candidates for a free-text food name.
func (c *Client) Search(ctx context.Context, name string) ([]Product, error) {
	q := url.Values{}
	q.Set("search_terms", strings.ToLower(strings.TrimSpace(name)))
	q.Set("search_simple", "1")
	q.Set("action", "process")
	q.Set("json", "1")
	q.Set("page_size", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cgi/search.pl?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "calo/1.0 (voice nutrition logger)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search open food facts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("open food facts error (status %d): %s", resp.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode open food facts response: %w", err)
	}
	return sr.Products, nil
}

// Lookup returns the facts of the first candidate with a positive energy value.
// Candidates are never merged. Missing macros count as zero.
func (c *Client) Lookup(ctx context.Context, name string) (Facts, error) {
	products, err := c.Search(ctx, name)
	if err != nil {
		return Facts{}, err
	}

	facts, ok := pick(products, name)
	if !ok {
		c.log.Debug("no usable product", zap.String("query", name), zap.Int("candidates", len(products)))
		return Facts{}, fmt.Errorf("%q: %w", name, ErrNoMatch)
	}

	c.log.Debug("nutrition found",
		zap.String("query", name),
		zap.String("product", facts.ProductName),
		zap.Float64("kcal_100g", facts.Calories))
	return facts, nil
}

func pick(products []Product, query string) (Facts, bool) {
	for _, p := range products {
		kcal := number(p.Nutriments.EnergyKcal100g)
		if kcal <= 0 {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = query
		}
		return Facts{
			ProductName: name,
			Calories:    kcal,
			Protein:     number(p.Nutriments.Proteins100g),
			Carbs:       number(p.Nutriments.Carbohydrates100g),
			Fat:         number(p.Nutriments.Fat100g),
		}, true
	}
	return Facts{}, false
}

func number(f flexFloat) float64 {
	if f < 0 {
		return 0
	}
	return float64(f)
}
