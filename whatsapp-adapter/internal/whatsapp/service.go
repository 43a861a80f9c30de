package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// MerchantCatalog is the merchant's own product list, the source of truth for sync.
type MerchantCatalog interface {
	ListMerchantProducts(ctx context.Context) ([]model.Product, error)
}

// SyncFailure records one product that could not be pushed upstream.
type SyncFailure struct {
	ProductID string `json:"productId"`
	Error     string `json:"error"`
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Failed  []SyncFailure `json:"failed"`
}

// Service orchestrates catalog reads and writes and outbound messages on top
// of the Graph client. Read paths normalize every record; write paths return
// upstream failures unchanged.
type Service struct {
	client     *Client
	mapper     *Mapper
	dispatcher *Dispatcher
	merchant   MerchantCatalog
	observer   Observer

	syncing sync.Mutex // held for the whole of a SyncAll run
}

// NewService constructs a fully wired service. merchant may be nil, in which
// case SyncAll reports a configuration error.
func NewService(client *Client, mapper *Mapper, merchant MerchantCatalog, observer Observer) *Service {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Service{
		client:     client,
		mapper:     mapper,
		dispatcher: NewDispatcher(client),
		merchant:   merchant,
		observer:   observer,
	}
}

// ResolveCatalogID returns explicit when set, otherwise the configured catalog.
func (s *Service) ResolveCatalogID(ctx context.Context, explicit string) (string, error) {
	if id := strings.TrimSpace(explicit); id != "" {
		return id, nil
	}
	id, err := s.client.DefaultCatalogID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}
	return id, nil
}

// ListNormalizedProducts lists the catalog and normalizes every record.
// Malformed records degrade to defaults instead of failing the listing.
func (s *Service) ListNormalizedProducts(ctx context.Context, catalogID string) ([]model.Product, string, error) {
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	raw, err := s.client.ListProducts(ctx, catalogID)
	if err != nil {
		s.observer.CatalogListed(catalogID, nil, time.Since(start), err)
		return nil, catalogID, err
	}

	products := make([]model.Product, 0, len(raw))
	report := make([]Normalization, 0, len(raw))
	for _, r := range raw {
		p, n := s.mapper.FromRawProduct(r)
		products = append(products, p)
		report = append(report, n)
	}
	s.observer.CatalogListed(catalogID, report, time.Since(start), nil)
	return products, catalogID, nil
}

// GetCatalog returns the unnormalized upstream payload.
func (s *Service) GetCatalog(ctx context.Context, catalogID string) (json.RawMessage, string, error) {
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return nil, "", err
	}
	raw, err := s.client.GetCatalog(ctx, catalogID)
	return raw, catalogID, err
}

// CreateProduct adds p to the catalog and returns the upstream product id.
func (s *Service) CreateProduct(ctx context.Context, catalogID string, p model.Product) (string, error) {
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return "", err
	}
	start := time.Now()
	id, err := s.client.CreateProduct(ctx, catalogID, p)
	s.observer.ProductWritten("create", catalogID, p.ID, time.Since(start), err)
	return id, err
}

// UpdateProduct applies a sparse patch to an upstream product.
func (s *Service) UpdateProduct(ctx context.Context, catalogID, productID string, patch model.ProductPatch) error {
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.client.UpdateProduct(ctx, catalogID, productID, patch)
	s.observer.ProductWritten("update", catalogID, productID, time.Since(start), err)
	return err
}

// SyncAll pushes every merchant product upstream: products whose retailer id
// already exists are updated, the rest are created. Each retailer id is
// written at most once per run, and only one run is active at a time: a
// concurrent call fails with ErrSyncInProgress.
func (s *Service) SyncAll(ctx context.Context, catalogID string) (*SyncResult, error) {
	if s.merchant == nil {
		return nil, &ConfigError{Field: "DATABASE_URL"}
	}
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	if !s.syncing.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.syncing.Unlock()

	start := time.Now()
	res, err := s.syncAll(ctx, catalogID)
	s.observer.CatalogSynced(catalogID, res, time.Since(start), err)
	return res, err
}

func (s *Service) syncAll(ctx context.Context, catalogID string) (*SyncResult, error) {
	local, err := s.merchant.ListMerchantProducts(ctx)
	if err != nil {
		return nil, err
	}
	// A partial listing would turn existing products into creates.
	upstream, err := s.client.ListAllProducts(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]string, len(upstream))
	for _, r := range upstream {
		if rid := strings.TrimSpace(r.RetailerID); rid != "" {
			existing[rid] = r.ID
		}
	}

	res := &SyncResult{Failed: []SyncFailure{}}
	seen := make(map[string]struct{}, len(local))
	for _, p := range local {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if p.ID == "" {
			res.Failed = append(res.Failed, SyncFailure{Error: "product has no retailer id"})
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		if graphID, ok := existing[p.ID]; ok && graphID != "" {
			err := s.UpdateProduct(ctx, catalogID, graphID, fullPatch(p))
			if err != nil {
				res.Failed = append(res.Failed, SyncFailure{ProductID: p.ID, Error: err.Error()})
				continue
			}
			res.Updated++
			continue
		}

		if _, err := s.CreateProduct(ctx, catalogID, p); err != nil {
			if errors.Is(err, ErrConfiguration) {
				return res, err
			}
			res.Failed = append(res.Failed, SyncFailure{ProductID: p.ID, Error: err.Error()})
			continue
		}
		res.Created++
	}
	return res, nil
}

// SendText sends a plain text message.
func (s *Service) SendText(ctx context.Context, to, body string) (*SendResult, error) {
	start := time.Now()
	res, err := s.dispatcher.SendText(ctx, to, body)
	s.observer.MessageSent("text", to, res, time.Since(start), err)
	return res, err
}

// SendTemplate sends an approved template message.
func (s *Service) SendTemplate(ctx context.Context, to, templateName, languageCode string) (*SendResult, error) {
	start := time.Now()
	res, err := s.dispatcher.SendTemplate(ctx, to, templateName, languageCode)
	s.observer.MessageSent("template", to, res, time.Since(start), err)
	return res, err
}

// SendProductMessage sends an interactive single-product message for p.
func (s *Service) SendProductMessage(ctx context.Context, to, catalogID string, p model.Product) (*SendResult, error) {
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := s.dispatcher.SendInteractiveProduct(ctx, to, catalogID, p.ID, ProductMessageBody(p))
	s.observer.MessageSent("product", to, res, time.Since(start), err)
	return res, err
}

// SendCatalogMessage sends a catalog browsing message.
func (s *Service) SendCatalogMessage(ctx context.Context, to, catalogID, thumbnailRetailerID string) (*SendResult, error) {
	catalogID, err := s.ResolveCatalogID(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := s.dispatcher.SendInteractiveCatalog(ctx, to, catalogID, thumbnailRetailerID)
	s.observer.MessageSent("catalog", to, res, time.Since(start), err)
	return res, err
}

func fullPatch(p model.Product) model.ProductPatch {
	price := p.Price
	availability := p.Availability
	patch := model.ProductPatch{
		Name:         &p.Name,
		Description:  &p.Description,
		Price:        &price,
		Currency:     &p.Currency,
		Availability: &availability,
	}
	if p.ImageURL != "" {
		patch.ImageURL = &p.ImageURL
	}
	if p.URL != "" {
		patch.URL = &p.URL
	}
	return patch
}
