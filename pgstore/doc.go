// Package pgstore implements the engine's store contracts on PostgreSQL via
// pgx. One Store value serves both the UserStore and RoleApiStore roles; it
// owns no pool lifecycle — the caller creates and closes the pgxpool.
package pgstore
