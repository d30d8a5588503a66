// `mpcnet` is the transport layer of a multi-party computation (MPC)
// runtime: it wires N cooperating processes ("parties") into a fully
// connected mesh of TCP streams and exposes the two collective exchange
// primitives the cryptographic protocol layer builds on.
//
// ## How it works
//
// Every party knows the full roster ahead of time: a plain-text peer file
// (one address per non-blank line, line order = party id) or a YAML
// deployment `Config`. A party calls `Create` to obtain a `Net`, then
// `Net.Init` to load the roster and establish the mesh. Establishment is
// driven in rounds keyed by the lower party id, so for every unordered
// pair exactly one side dials and the other accepts, and a one-byte token
// handed between adjacent rounds keeps a later round's accept from racing
// an earlier round's in-flight dial.
//
// Once the mesh is up, the protocol layer drives the collectives:
//
//   - `Net.Broadcast` is the symmetric all-to-all: every party contributes
//     one payload and receives everyone's, indexed by party id.
//   - `Net.SendToKing` / `Net.RecvFromKing` form the asymmetric star: party 0
//     (the "king") aggregates one payload from each party, then hands one
//     back to each.
//
// Each collective fans its per-peer socket work out to one task per
// connection and joins them all before returning, so callers never observe
// partial results. Whether a task reads-then-writes or writes-then-reads
// is decided purely by comparing party ids; that split is the
// deadlock-freedom mechanism, and it assumes all parties issue matching
// collective calls in the same order (lock-step). Desynchronized call
// sequences across the process group are a protocol violation, not
// something this layer defends against.
//
// ## Design Principles
//
// `mpcnet` assumes a **trusted, co-scheduled cluster**: there is no
// authentication or encryption (run it over a pre-secured network), no
// peer discovery, and no partial-failure semantics: any peer i/o error
// fails the whole collective call. Only the initial dial loop retries
// (connection refused/reset, fixed backoff, bounded give-up); steady-state
// reads and writes block until the mesh delivers.
//
// Every `Net` is an independent instance; tests and simulations can run a
// whole party group inside one process.
package mpcnet
