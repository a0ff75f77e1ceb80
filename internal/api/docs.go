// Package api provides the read-only REST API over the raffle projection.
// @title Ticket Arcade Indexer API
// @version 1.0
// @description REST API for querying raffle state indexed from the chain
// @host localhost:8080
// @basePath /
// @schemes http https
package api
