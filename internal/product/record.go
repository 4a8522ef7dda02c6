// Package product implements the product lifecycle: creation, listing and
// ownership transfer over a key-value record store.
//
// The lifecycle has two orthogonal facets. Status moves one way only:
//
//	PRODUCT_CREATED -> READY_FOR_SHIPMENT
//
// Ownership (owner, ownerType) changes on transfer and on listing,
// independently of status.
//
// Every mutation reads the full current record, applies exactly one
// semantic change, re-encodes the entire record canonically and writes it
// back under the same key. Mutations rewrite the stored document, not a
// Record, so fields this package does not know about survive. Replaying a
// transition from the same starting state produces the same bytes.
package product

import (
	"encoding/json"
	"time"

	"github.com/roach88/custody/internal/canonical"
	"github.com/roach88/custody/internal/failure"
)

// DocType is the discriminator every persisted product carries.
const DocType = "product"

// Status values.
const (
	StatusCreated          = "PRODUCT_CREATED"
	StatusReadyForShipment = "READY_FOR_SHIPMENT"
)

// Owner types.
const (
	OwnerManufacturer = "Manufacturer"
	OwnerDealer       = "Dealer"
)

// TimeLayout formats ledger timestamps in records: UTC with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Document keys rewritten by transitions.
const (
	fieldOwner          = "owner"
	fieldOwnerType      = "ownerType"
	fieldStatus         = "status"
	fieldListingDate    = "listingDate"
	fieldListingDetails = "listingDetails"
)

// Record is a persisted product. ListingDetails is nil until the product is
// listed; once listed it is present even when empty.
type Record struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	ManufacturerDetails canonical.Object  `json:"manufacturerDetails"`
	ProductClass        string            `json:"productClass"`
	ProductType         string            `json:"productType"`
	Owner               string            `json:"owner"`
	OwnerType           string            `json:"ownerType"`
	Status              string            `json:"status"`
	ManufacturingDate   string            `json:"manufacturingDate"`
	ListingDate         string            `json:"listingDate,omitempty"`
	ListingDetails      *canonical.Object `json:"listingDetails,omitempty"`
	Price               string            `json:"price"`
	DocType             string            `json:"docType"`
}

// Encode returns the canonical bytes of r.
func (r *Record) Encode() ([]byte, error) {
	data, err := canonical.Marshal(r)
	if err != nil {
		return nil, failure.Wrap(failure.KindEncoding, r.ID, err, "encode product")
	}
	return data, nil
}

// DecodeRecord parses stored bytes into a Record.
func DecodeRecord(key string, data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, failure.Wrap(failure.KindEncoding, key, err, "decode product")
	}
	return &r, nil
}
