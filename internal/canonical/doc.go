// Package canonical provides the deterministic serialization every ledger
// write goes through.
//
// Two replicas that compute the same record must write the same bytes,
// otherwise their state digests diverge. Marshal therefore produces RFC 8785
// style canonical JSON:
//   - object keys sorted by UTF-16 code units, recursively
//   - arrays keep their order
//   - no HTML escaping, strings NFC normalized
//   - no floats and no null (both rejected with an ENCODING failure)
//
// The sealed Value types (String, Int, Bool, Array, Object) carry caller
// supplied free-form data such as manufacturer and listing details. Go
// structs are accepted too: they are rendered through encoding/json first and
// re-encoded canonically, so struct field order never leaks into the output.
package canonical
