// Package ledger is a SQLite-backed reference implementation of the
// key-value ledger the custody core runs against.
//
// The core treats the ledger as an external collaborator and only consumes
// the Stub interface. This package exists so the contract can run end to end
// on one machine. It provides:
//   - World state: the latest value per key
//   - History: every committed value per key, with its transaction
//   - Transactions: id, ledger timestamp, creator, function, write-set digest
//
// # Transactions
//
// Every operation runs inside one Tx. Begin assigns the transaction id and
// the ledger timestamp up front; both are stable for the whole transaction,
// so re-running the same logic produces the same writes. Commit is
// all-or-nothing; Rollback discards every write. SQLite's single writer
// serializes transactions.
//
// # Deterministic Results
//
//   - Range scans and predicate queries are ordered by key, COLLATE BINARY
//   - History is ordered by transaction sequence (commit order)
//   - State and write-set digests use canonical JSON with domain separation
//
// # Predicate Queries
//
// Descriptors are parsed by package selector and compiled to parameterized
// SQL over json_extract. Rows whose value is not valid JSON never match.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package ledger
