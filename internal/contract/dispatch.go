package contract

import (
	"strconv"

	"github.com/roach88/custody/internal/failure"
)

// Function names accepted by Dispatch.
const (
	FnInitLedger           = "InitLedger"
	FnCreateProduct        = "CreateProduct"
	FnReadProduct          = "ReadProduct"
	FnProductExists        = "ProductExists"
	FnListProduct          = "ListProduct"
	FnTransferProduct      = "TransferProduct"
	FnGetAllProducts       = "GetAllProducts"
	FnQueryProductsByOwner = "QueryProductsByOwner"
	FnQueryProducts        = "QueryProducts"
	FnTrackProductHistory  = "TrackProductHistory"
)

// function describes one dispatchable operation.
type function struct {
	// minArgs and maxArgs bound the positional argument count.
	minArgs, maxArgs int

	// readOnly functions never write and are evaluated, not submitted.
	readOnly bool

	call func(c *ProductTracking, tc *TxContext, args []string) (string, error)
}

var functions = map[string]function{
	FnInitLedger: {0, 0, false, func(c *ProductTracking, tc *TxContext, _ []string) (string, error) {
		return "", c.InitLedger(tc)
	}},
	FnCreateProduct: {8, 8, false, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		return c.CreateProduct(tc, a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7])
	}},
	FnReadProduct: {1, 1, true, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		return c.ReadProduct(tc, a[0])
	}},
	FnProductExists: {1, 1, true, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		ok, err := c.ProductExists(tc, a[0])
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil
	}},
	FnListProduct: {2, 3, false, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		caller := ""
		if len(a) == 3 {
			caller = a[2]
		}
		return c.ListProduct(tc, a[0], a[1], caller)
	}},
	FnTransferProduct: {2, 2, false, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		return c.TransferProduct(tc, a[0], a[1])
	}},
	FnGetAllProducts: {0, 0, true, func(c *ProductTracking, tc *TxContext, _ []string) (string, error) {
		return c.GetAllProducts(tc)
	}},
	FnQueryProductsByOwner: {1, 1, true, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		return c.QueryProductsByOwner(tc, a[0])
	}},
	FnQueryProducts: {1, 1, true, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		return c.QueryProducts(tc, a[0])
	}},
	FnTrackProductHistory: {1, 1, true, func(c *ProductTracking, tc *TxContext, a []string) (string, error) {
		return c.TrackProductHistory(tc, a[0])
	}},
}

// Dispatch routes a transaction by function name with string arguments, the
// way a chaincode host does.
func (c *ProductTracking) Dispatch(tc *TxContext, name string, args []string) (string, error) {
	fn, ok := functions[name]
	if !ok {
		return "", failure.New(failure.KindInvalidArgument, "", "unknown function %q", name)
	}
	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		if fn.minArgs == fn.maxArgs {
			return "", failure.New(failure.KindInvalidArgument, "",
				"%s expects %d arguments, got %d", name, fn.minArgs, len(args))
		}
		return "", failure.New(failure.KindInvalidArgument, "",
			"%s expects %d to %d arguments, got %d", name, fn.minArgs, fn.maxArgs, len(args))
	}
	return fn.call(c, tc, args)
}

// Evaluates reports whether name is a read-only function.
// Unknown names report false.
func Evaluates(name string) bool {
	return functions[name].readOnly
}

// Known reports whether name is a dispatchable function.
func Known(name string) bool {
	_, ok := functions[name]
	return ok
}
