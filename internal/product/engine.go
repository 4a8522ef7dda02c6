package product

import (
	"time"

	"github.com/roach88/custody/internal/canonical"
	"github.com/roach88/custody/internal/failure"
)

// RecordStore is the key-value surface the engine reads and writes.
// *state.Adapter implements it.
type RecordStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Exists(key string) (bool, error)
}

// Clock supplies the current ledger timestamp.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Draft holds the creation arguments.
type Draft struct {
	ID                  string
	ProductClass        string
	Name                string
	ManufacturerDetails canonical.Object
	Owner               string
	OwnerType           string
	ProductType         string
	Price               string
}

// Engine runs lifecycle transitions inside one transaction.
// It holds no state across transactions.
type Engine struct {
	records RecordStore
	clock   Clock
}

// NewEngine creates an Engine over records, stamping writes with clock.
func NewEngine(records RecordStore, clock Clock) *Engine {
	return &Engine{records: records, clock: clock}
}

// Create persists a new product and returns its canonical bytes.
//
// Fails with ALREADY_EXISTS if the id is taken and ROLE_VIOLATION if the
// creator is not a Manufacturer.
func (e *Engine) Create(s Draft) ([]byte, error) {
	exists, err := e.records.Exists(s.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, failure.AlreadyExists(s.ID)
	}

	if s.OwnerType != OwnerManufacturer {
		return nil, failure.New(failure.KindRole, s.ID,
			"the product can only be created by Manufacturer but current user is %s", s.OwnerType)
	}

	r := &Record{
		ID:                  s.ID,
		Name:                s.Name,
		ManufacturerDetails: s.ManufacturerDetails,
		ProductClass:        s.ProductClass,
		ProductType:         s.ProductType,
		Owner:               s.Owner,
		OwnerType:           s.OwnerType,
		Status:              StatusCreated,
		ManufacturingDate:   FormatTime(e.clock.Now()),
		Price:               s.Price,
		DocType:             DocType,
	}
	data, err := r.Encode()
	if err != nil {
		return nil, err
	}
	return e.put(r.ID, data)
}

// Read returns the stored bytes for id unchanged.
func (e *Engine) Read(id string) ([]byte, error) {
	data, err := e.records.Get(id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, failure.NotFound(id)
	}
	return data, nil
}

// Exists reports whether a product is stored at id.
func (e *Engine) Exists(id string) (bool, error) {
	return e.records.Exists(id)
}

// List moves a freshly created product to READY_FOR_SHIPMENT and hands it
// to the dealer channel. Returns the canonical bytes of the rewritten record.
//
// Only a product still held by its Manufacturer in PRODUCT_CREATED can be
// listed, so a second List fails with ROLE_VIOLATION. details is attached
// as given; a nil details is stored as an empty object.
func (e *Engine) List(id string, details canonical.Object, caller string) ([]byte, error) {
	r, doc, err := e.load(id)
	if err != nil {
		return nil, err
	}

	if r.OwnerType != OwnerManufacturer {
		return nil, failure.New(failure.KindRole, id,
			"the product can only be listed by Manufacturer but user is %s", caller)
	}
	if r.Status != StatusCreated {
		return nil, failure.New(failure.KindRole, id,
			"the product cannot be listed from status %s", r.Status)
	}

	if details == nil {
		details = canonical.Object{}
	}
	doc[fieldStatus] = canonical.String(StatusReadyForShipment)
	doc[fieldListingDate] = canonical.String(FormatTime(e.clock.Now()))
	doc[fieldListingDetails] = details
	doc[fieldOwnerType] = canonical.String(OwnerDealer)
	return e.rewrite(id, doc)
}

// Transfer replaces the owner of id and returns the previous owner.
// All other fields are left untouched.
func (e *Engine) Transfer(id, newOwner string) (string, error) {
	r, doc, err := e.load(id)
	if err != nil {
		return "", err
	}

	doc[fieldOwner] = canonical.String(newOwner)
	if _, err := e.rewrite(id, doc); err != nil {
		return "", err
	}
	return r.Owner, nil
}

// load returns the stored record both typed, for the transition guards, and
// as the document that gets rewritten.
func (e *Engine) load(id string) (*Record, canonical.Object, error) {
	data, err := e.Read(id)
	if err != nil {
		return nil, nil, err
	}
	r, err := DecodeRecord(id, data)
	if err != nil {
		return nil, nil, err
	}
	doc, err := canonical.DecodeObject(data)
	if err != nil {
		return nil, nil, failure.Wrap(failure.KindEncoding, id, err, "decode product")
	}
	return r, doc, nil
}

// rewrite re-encodes the whole document canonically and stores it.
func (e *Engine) rewrite(key string, doc canonical.Object) ([]byte, error) {
	data, err := canonical.Marshal(doc)
	if err != nil {
		return nil, failure.Wrap(failure.KindEncoding, key, err, "encode product")
	}
	return e.put(key, data)
}

func (e *Engine) put(key string, data []byte) ([]byte, error) {
	if err := e.records.Put(key, data); err != nil {
		return nil, err
	}
	return data, nil
}
