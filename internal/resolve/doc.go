// Package resolve turns graph identifiers into fully populated domain
// entities: traders, accounts, securities and transactions with their
// immediate relationship context. It backs the detail endpoints and enriches
// suspicious activities with the entities they reference.
package resolve
