// Package recordset is a client-side data-access layer over a paginated
// JSON-RPC record API.
//
// # Overview
//
// A Session binds a Transport to a Registry of record kinds. From it callers
// build lazy collections and single records:
//
//	s := recordset.NewSession(transport)
//	shifts, _ := s.Collection("shift", recordset.WithFilter(recordset.Filter{"workgroup": "226084"}))
//	n, err := shifts.Len(ctx)          // first page fetch
//	first, ok, err := shifts.Get(ctx, 0)
//	for shift, err := range shifts.All(ctx) { ... }
//
// Collections fetch pages on demand and keep every record they have seen.
// Pages are aligned to the batch size, the wire offset is 1-based, and the
// count reported by the most recent page bounds iteration.
//
// # Records
//
// A Record is a sparse field map identified by (kind, id). Records seeded
// from a page are not loaded; Load fetches the full representation and fills
// in only the fields that are missing, so seed data always wins.
//
// # Denormalisation
//
// When a page carries referenced_objects, the foreign keys listed in the
// kind's InlineRefs are replaced with hydrated records before the page is
// published. ResolveReferences does the same for a whole collection with one
// extra batched request per target kind:
//
//	err := shifts.ResolveReferences(ctx, "workgroup")
//	err = shifts.ResolveReferences(ctx, "account", recordset.Field("covering_member"))
//
// # Errors
//
// Network failures surface as *TransportError and server error envelopes as
// *Fault. ErrOutOfRange is local and never needs a request once the count is
// known. Nothing in this package retries.
package recordset
