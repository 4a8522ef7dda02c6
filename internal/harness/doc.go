// Package harness runs product-tracking scenarios against a fresh ledger.
//
// A scenario is a YAML file that invokes contract functions in order, checks
// each outcome, and then asserts on the final ledger and the recorded trace.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - invoke: InitLedger
//	steps:
//	  - invoke: CreateProduct
//	    caller: M1
//	    args: [P1, High-Value-Goods, Widget, '{"id":"MN1",...}', M1, Manufacturer, Tool, "100"]
//	    expect:
//	      fields: { status: PRODUCT_CREATED }
//	  - invoke: CreateProduct
//	    args: [P1, ...]
//	    expect:
//	      error: ALREADY_EXISTS
//	assertions:
//	  - type: final_state
//	    key: P1
//	    expect: { owner: M1 }
//	  - type: history_count
//	    key: P1
//	    count: 1
//
// # Expectations
//
// A step's expect clause may name a failure kind (error), an exact payload
// (result), a subset of payload object fields (fields), or the length of a
// payload array (count). A step without an expect clause must succeed.
//
// # Assertion Types
//
//   - final_state: the stored record at key contains the expected fields
//   - history_count: key has exactly count modifications
//   - tx_count: exactly count transactions were committed
//   - trace_count: function was invoked exactly count times
//   - trace_order: functions were first invoked in the given order
//
// # Deterministic Execution
//
// Every scenario runs on its own temporary ledger with a step clock starting
// at testutil.Epoch and sequential transaction ids (tx-0001, tx-0002, ...),
// so traces are identical across runs and can be compared to golden files.
package harness
