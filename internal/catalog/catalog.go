// Package catalog holds the read-only server directory that reboot tasks
// reference by id. Entries are seeded once at startup (from config or the
// built-in fixture) and never mutated by the engine.
package catalog

import "strings"

type ServerStatus string

const (
	StatusOnline      ServerStatus = "online"
	StatusOffline     ServerStatus = "offline"
	StatusMaintenance ServerStatus = "maintenance"
)

func (s ServerStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusMaintenance:
		return true
	}
	return false
}

type Server struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Address string       `json:"address"`
	Status  ServerStatus `json:"status"`
}

// Catalog is safe for concurrent readers because it is immutable after New.
type Catalog struct {
	servers []Server
	byID    map[string]Server
}

// New builds a catalog from the given servers. Empty input falls back to the
// default fixture so a bare config still yields a usable engine.
func New(servers []Server) *Catalog {
	if len(servers) == 0 {
		servers = defaultServers()
	}
	c := &Catalog{
		servers: append([]Server(nil), servers...),
		byID:    make(map[string]Server, len(servers)),
	}
	for _, s := range c.servers {
		c.byID[s.ID] = s
	}
	return c
}

// List returns a copy of all servers. Callers may reorder or mutate the
// returned slice freely.
func (c *Catalog) List() []Server {
	return append([]Server(nil), c.servers...)
}

// FindByID resolves a server id. Absence is not an error.
func (c *Catalog) FindByID(id string) (Server, bool) {
	s, ok := c.byID[strings.TrimSpace(id)]
	return s, ok
}

func (c *Catalog) Len() int { return len(c.servers) }

func defaultServers() []Server {
	return []Server{
		{ID: "1", Name: "Production Server 1", Address: "192.168.1.10", Status: StatusOnline},
		{ID: "2", Name: "Production Server 2", Address: "192.168.1.11", Status: StatusOnline},
		{ID: "3", Name: "Development Server 1", Address: "192.168.2.10", Status: StatusOnline},
		{ID: "4", Name: "Development Server 2", Address: "192.168.2.11", Status: StatusOffline},
		{ID: "5", Name: "Testing Server 1", Address: "192.168.3.10", Status: StatusOnline},
		{ID: "6", Name: "Testing Server 2", Address: "192.168.3.11", Status: StatusMaintenance},
		{ID: "7", Name: "Staging Server 1", Address: "192.168.4.10", Status: StatusOnline},
		{ID: "8", Name: "Staging Server 2", Address: "192.168.4.11", Status: StatusOnline},
		{ID: "9", Name: "Database Server 1", Address: "192.168.5.10", Status: StatusOnline},
		{ID: "10", Name: "Database Server 2", Address: "192.168.5.11", Status: StatusOnline},
	}
}
