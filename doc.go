// Package authz implements a tenant-aware access-control core: credential
// validation with typed outcomes, signed bearer token issuance, and the
// tenant + permission authorization gates that protect every operation.
//
// The package owns decision logic only. Users, roles, and their permission
// sets live behind the IdentityStore and RoleStore collaborators; transport
// and email delivery are the caller's concern. Decision paths are pure
// functions of their inputs plus an injected clock and signing secret, so
// outcomes stay deterministic under test.
//
// Authorization always runs in two stages: the tenant gate first, then the
// permission gate. A caller without a well-formed tenant claim never reaches
// a permission check, and permission checks never cross tenant boundaries.
package authz
