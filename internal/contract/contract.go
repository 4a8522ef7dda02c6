package contract

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/roach88/custody/internal/canonical"
	"github.com/roach88/custody/internal/failure"
	"github.com/roach88/custody/internal/metrics"
	"github.com/roach88/custody/internal/product"
	"github.com/roach88/custody/internal/query"
	"github.com/roach88/custody/internal/seed"
	"github.com/roach88/custody/internal/selector"
)

// ProductTracking is the product-tracking contract. It keeps no state
// between transactions.
type ProductTracking struct {
	aggregator *query.Aggregator
}

// New creates the contract. Both arguments may be nil.
func New(logger *slog.Logger, m *metrics.Metrics) *ProductTracking {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ProductTracking{aggregator: query.NewAggregator(logger, m)}
}

// InitLedger seeds the default catalog through the creation path.
func (c *ProductTracking) InitLedger(tc *TxContext) error {
	cat, err := seed.Default()
	if err != nil {
		return failure.Wrap(failure.KindInvalidArgument, "", err, "load default catalog")
	}
	_, err = c.SeedCatalog(tc, cat)
	return err
}

// SeedCatalog creates every product of cat in order and returns their ids.
// One failure aborts the whole transaction.
func (c *ProductTracking) SeedCatalog(tc *TxContext, cat *seed.Catalog) ([]string, error) {
	ids := make([]string, 0, len(cat.Products))
	for _, p := range cat.Products {
		req := createRequest{
			ID:           p.ID,
			ProductClass: p.ProductClass,
			Name:         p.Name,
			Owner:        p.Owner,
			OwnerType:    p.OwnerType,
			ProductType:  p.ProductType,
			Price:        p.Price,
		}
		if _, err := c.create(tc, req, p.Manufacturer.Object()); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	tc.Logger.Info("catalog seeded", "products", len(ids))
	return ids, nil
}

// CreateProduct issues a new product and returns its record JSON.
// manufacturer is a JSON object {id, name, type, origin}.
func (c *ProductTracking) CreateProduct(tc *TxContext, id, productClass, name, manufacturer, owner, ownerType, productType, price string) (string, error) {
	details, err := canonical.DecodeObject([]byte(manufacturer))
	if err != nil {
		return "", failure.Wrap(failure.KindEncoding, id, err, "manufacturer details")
	}

	req := createRequest{
		ID:           id,
		ProductClass: productClass,
		Name:         name,
		Owner:        owner,
		OwnerType:    ownerType,
		ProductType:  productType,
		Price:        price,
	}
	return c.create(tc, req, details)
}

func (c *ProductTracking) create(tc *TxContext, req createRequest, details canonical.Object) (string, error) {
	if err := check(req.ID, req); err != nil {
		return "", err
	}
	if err := checkManufacturer(req.ID, details); err != nil {
		return "", err
	}

	out, err := tc.engine().Create(product.Draft{
		ID:                  req.ID,
		ProductClass:        req.ProductClass,
		Name:                req.Name,
		ManufacturerDetails: details,
		Owner:               req.Owner,
		OwnerType:           req.OwnerType,
		ProductType:         req.ProductType,
		Price:               req.Price,
	})
	if err != nil {
		return "", err
	}

	tc.Logger.Info("product created", "product_id", req.ID, "owner", req.Owner)
	return string(out), nil
}

// ReadProduct returns the stored record JSON for id.
func (c *ProductTracking) ReadProduct(tc *TxContext, id string) (string, error) {
	if err := check(id, keyRequest{ID: id}); err != nil {
		return "", err
	}
	out, err := tc.engine().Read(id)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ProductExists reports whether a product is stored at id.
func (c *ProductTracking) ProductExists(tc *TxContext, id string) (bool, error) {
	if err := check(id, keyRequest{ID: id}); err != nil {
		return false, err
	}
	return tc.engine().Exists(id)
}

// ListProduct moves a product to READY_FOR_SHIPMENT with the given listing
// details (a JSON object). An empty caller defaults to the transaction's
// caller.
func (c *ProductTracking) ListProduct(tc *TxContext, id, listingInfo, caller string) (string, error) {
	if caller == "" {
		caller = tc.Caller
	}
	if err := check(id, listRequest{ID: id, Caller: caller}); err != nil {
		return "", err
	}

	details, err := canonical.DecodeObject([]byte(listingInfo))
	if err != nil {
		return "", failure.Wrap(failure.KindEncoding, id, err, "listing details")
	}

	out, err := tc.engine().List(id, details, caller)
	if err != nil {
		return "", err
	}

	tc.Logger.Info("product listed", "product_id", id, "caller", caller)
	return string(out), nil
}

// TransferProduct changes the owner of id and returns the previous owner.
func (c *ProductTracking) TransferProduct(tc *TxContext, id, newOwner string) (string, error) {
	if err := check(id, transferRequest{ID: id, NewOwner: newOwner}); err != nil {
		return "", err
	}

	previous, err := tc.engine().Transfer(id, newOwner)
	if err != nil {
		return "", err
	}

	tc.Logger.Info("product transferred", "product_id", id, "from", previous, "to", newOwner)
	return previous, nil
}

// GetAllProducts returns every entry in the namespace as [{Key, Record}].
func (c *ProductTracking) GetAllProducts(tc *TxContext) (string, error) {
	it, err := tc.Stub.GetStateByRange("", "")
	if err != nil {
		return "", failure.Wrap(failure.KindQuery, "", err, "range scan")
	}
	results, err := c.aggregator.Collect(it)
	if err != nil {
		return "", err
	}
	return encodeResults(results)
}

// QueryProductsByOwner returns the products held by owner.
func (c *ProductTracking) QueryProductsByOwner(tc *TxContext, owner string) (string, error) {
	if err := check("", ownerRequest{Owner: owner}); err != nil {
		return "", err
	}
	desc, err := selector.ByOwner(product.DocType, owner)
	if err != nil {
		return "", err
	}
	return c.queryResults(tc, desc)
}

// QueryProducts runs a selector descriptor as-is.
func (c *ProductTracking) QueryProducts(tc *TxContext, queryString string) (string, error) {
	if err := check("", queryRequest{Query: queryString}); err != nil {
		return "", err
	}
	return c.queryResults(tc, queryString)
}

func (c *ProductTracking) queryResults(tc *TxContext, desc string) (string, error) {
	it, err := tc.Stub.GetQueryResult(desc)
	if err != nil {
		return "", failure.Wrap(failure.KindQuery, "", err, "predicate query")
	}
	results, err := c.aggregator.Collect(it)
	if err != nil {
		return "", err
	}
	return encodeResults(results)
}

// TrackProductHistory returns the chain of custody for id since issuance
// as [{TxId, Timestamp, Value}], oldest first.
func (c *ProductTracking) TrackProductHistory(tc *TxContext, id string) (string, error) {
	if err := check(id, keyRequest{ID: id}); err != nil {
		return "", err
	}
	it, err := tc.Stub.GetHistoryForKey(id)
	if err != nil {
		return "", failure.Wrap(failure.KindQuery, id, err, "history")
	}
	results, err := c.aggregator.CollectHistory(it)
	if err != nil {
		return "", err
	}
	return encodeResults(results)
}

// encodeResults renders v as compact JSON without HTML escaping.
func encodeResults(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", failure.Wrap(failure.KindEncoding, "", err, "encode results")
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
