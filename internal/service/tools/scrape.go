package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dpatinod/BataBot/internal/config"
)

// ScrapeInput scrape 工具输入
type ScrapeInput struct {
	Query    string `json:"query"`
	Gender   string `json:"gender"`
	Category string `json:"category"`
}

// CatalogProduct 目录页上的一个商品
type CatalogProduct struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Link  string `json:"link,omitempty"`
}

// ScrapeOutput scrape 工具输出
type ScrapeOutput struct {
	Source   string           `json:"source"`
	Products []CatalogProduct `json:"products"`
}

// CatalogScraper 按 gender/category 抓取商品目录页
type CatalogScraper struct {
	baseURL string
	catalog map[string]map[string]string
	client  *http.Client
}

// NewCatalogScraper 创建目录抓取器
func NewCatalogScraper(cfg *config.ScraperConfig) *CatalogScraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15
	}
	return &CatalogScraper{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		catalog: cfg.Catalog,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// NewScrapeEntry 创建目录抓取工具
func NewScrapeEntry(scraper *CatalogScraper) (*Entry, error) {
	if scraper == nil {
		return nil, fmt.Errorf("catalog scraper is nil")
	}

	info := &schema.ToolInfo{
		Name: "scrape",
		Desc: "Consulta el catalogo de productos en linea por genero y categoria. Devuelve nombre, precio y enlace de cada producto.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Texto para filtrar los productos de la pagina, por ejemplo 'bota' o 'tenis'",
				Required: false,
			},
			"gender": {
				Type:     schema.String,
				Desc:     "Genero del catalogo: hombre, mujer o nino",
				Required: true,
			},
			"category": {
				Type:     schema.String,
				Desc:     "Categoria de producto, por ejemplo zapatos, sandalias o deportivos",
				Required: true,
			},
		}),
	}

	return &Entry{
		Name:      "scrape",
		Tool:      utils.NewTool(info, scraper.Scrape),
		Retryable: true,
	}, nil
}

// Scrape 抓取一页目录并解析商品列表
func (s *CatalogScraper) Scrape(ctx context.Context, input *ScrapeInput) (*ScrapeOutput, error) {
	path, err := s.lookupPath(input.Gender, input.Category)
	if err != nil {
		return nil, err
	}
	pageURL := s.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; BataBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog page: %w", err)
	}

	return &ScrapeOutput{
		Source:   pageURL,
		Products: filterProducts(s.ParseProducts(doc), input.Query),
	}, nil
}

// filterProducts 按查询词过滤商品名
// 没有命中时返回整页，让模型自己挑近似的
func filterProducts(products []CatalogProduct, query string) []CatalogProduct {
	q := normalizeKey(query)
	if q == "" {
		return products
	}

	matched := make([]CatalogProduct, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return products
	}
	return matched
}

// ParseProducts 从目录页 DOM 提取商品
func (s *CatalogScraper) ParseProducts(doc *goquery.Document) []CatalogProduct {
	products := make([]CatalogProduct, 0, 24)
	doc.Find("li.product-item, div.product-tile").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find(".product-item__name, .product-name").First().Text())
		price := strings.TrimSpace(sel.Find(".product-item__price, .product-price").First().Text())
		if name == "" {
			return
		}

		product := CatalogProduct{Name: name, Price: price}
		if href, ok := sel.Find("a").First().Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				href = s.baseURL + href
			}
			product.Link = href
		}
		products = append(products, product)
	})
	return products
}

// lookupPath 按 gender/category 查目录页路径
func (s *CatalogScraper) lookupPath(gender, category string) (string, error) {
	gender = normalizeKey(gender)
	category = normalizeKey(category)

	byCategory, ok := s.catalog[gender]
	if !ok {
		return "", fmt.Errorf("unknown catalog gender: %s", gender)
	}
	path, ok := byCategory[category]
	if !ok {
		return "", fmt.Errorf("unknown catalog category %q for gender %q", category, gender)
	}
	return path, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
