// Package store implements relational persistence for the catalog, orders and
// chat history on top of gorm. SQLite (pure-Go driver) covers local and test
// deployments, Postgres production ones. The approval path is the only place
// that needs a real transactional guarantee; see ApproveOrder.
package store
