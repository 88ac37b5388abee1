// Package esios is the high-level ESIOS client: endpoint managers for
// indicators, offer indicators, and archives, coordinating the HTTP
// transport with the local cache.
package esios

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/colthorp/esios-cli-go/internal/api"
	"github.com/colthorp/esios-cli-go/internal/cache"
	"github.com/colthorp/esios-cli-go/internal/core"
)

// Client bundles the transport, the cache store, and the endpoint
// managers. Construct one per process with New.
type Client struct {
	transport api.Transport
	store     *cache.Store
	loc       *time.Location
	log       zerolog.Logger

	Indicators      *IndicatorManager
	OfferIndicators *IndicatorManager
	Archives        *ArchiveManager
}

// New wires a client from a transport and a cache store. Timezone
// names the display zone for returned frames; empty means the Spanish
// market default.
func New(transport api.Transport, store *cache.Store, timezone string) *Client {
	c := &Client{
		transport: transport,
		store:     store,
		loc:       core.GetTZ(timezone),
		log:       core.Logger("esios"),
	}
	c.Indicators = &IndicatorManager{
		client:    c,
		endpoint:  core.EndpointIndicators,
		chunkDays: core.ChunkMaxDays,
	}
	c.OfferIndicators = &IndicatorManager{
		client:    c,
		endpoint:  core.EndpointOfferIndicators,
		chunkDays: core.OfferChunkDays,
	}
	c.Archives = &ArchiveManager{client: c}
	return c
}

// Store exposes the cache store for maintenance commands.
func (c *Client) Store() *cache.Store { return c.store }

// Location returns the display timezone.
func (c *Client) Location() *time.Location { return c.loc }
