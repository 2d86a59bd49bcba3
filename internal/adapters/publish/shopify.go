// Package publish pushes products to the external commerce channel.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/intag/internal/app"
	"github.com/hylla/intag/internal/domain"
)

const (
	apiVersion     = "2024-01"
	defaultTimeout = 15 * time.Second
)

// Client publishes products to a Shopify store over the Admin REST API. It
// implements app.Publisher.
type Client struct {
	shopDomain  string
	accessToken string
	httpClient  *http.Client
	logger      *charmLog.Logger
}

// NewClient builds a store client. shopDomain is the myshopify hostname
// without scheme.
func NewClient(shopDomain, accessToken string, logger *charmLog.Logger) (*Client, error) {
	shopDomain = strings.TrimSpace(shopDomain)
	accessToken = strings.TrimSpace(accessToken)
	if shopDomain == "" {
		return nil, errors.New("shop domain is required")
	}
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger,
	}, nil
}

type productRequest struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	Title    string         `json:"title"`
	BodyHTML string         `json:"body_html,omitempty"`
	Vendor   string         `json:"vendor,omitempty"`
	Type     string         `json:"product_type,omitempty"`
	Status   string         `json:"status"`
	Variants []variant      `json:"variants,omitempty"`
	Images   []productImage `json:"images,omitempty"`
}

type variant struct {
	SKU   string `json:"sku,omitempty"`
	Price string `json:"price,omitempty"`
}

type productImage struct {
	Src string `json:"src"`
}

type productResponse struct {
	Product struct {
		ID     int64  `json:"id"`
		Handle string `json:"handle"`
		Status string `json:"status"`
	} `json:"product"`
}

// PublishProduct creates the product on the store and returns its external
// identity.
func (c *Client) PublishProduct(ctx context.Context, product domain.Product) (app.PublishResult, error) {
	payload := productRequest{
		Product: productPayload{
			Title:    product.Title,
			BodyHTML: product.Description,
			Vendor:   product.Vendor,
			Type:     product.Category,
			Status:   "active",
		},
	}
	if product.SKU != "" || product.Price != "" {
		payload.Product.Variants = []variant{{SKU: product.SKU, Price: product.Price}}
	}
	for _, src := range product.Images {
		payload.Product.Images = append(payload.Product.Images, productImage{Src: src})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return app.PublishResult{}, fmt.Errorf("encode product payload: %w", err)
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/products.json", c.shopDomain, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return app.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return app.PublishResult{}, fmt.Errorf("publish product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("store rejected product", "status", resp.StatusCode, "product_id", product.ID)
		return app.PublishResult{}, fmt.Errorf("publish product: store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded productResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return app.PublishResult{}, fmt.Errorf("decode store response: %w", err)
	}
	if decoded.Product.ID == 0 {
		return app.PublishResult{}, errors.New("store response missing product id")
	}

	return app.PublishResult{
		ExternalID: fmt.Sprintf("%d", decoded.Product.ID),
		Handle:     decoded.Product.Handle,
		Status:     decoded.Product.Status,
	}, nil
}
