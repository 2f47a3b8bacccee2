package client

import (
	"context"
	"log/slog"
	"time"
)

// DashboardStats collects the statistics shown on the platform landing page.
// A nil payload means that section could not be loaded; the reason is in Errors.
type DashboardStats struct {
	CRM       Payload
	Deals     Payload
	Inventory Payload
	Orders    Payload
	Cashier   Payload
	Errors    map[string]error
}

// LoadDashboardStats fetches every module's statistics through the cache.
// It never fails: a section that errors is logged and left empty so the rest of the page still renders.
func (c *Client) LoadDashboardStats(ctx context.Context, ttl time.Duration) DashboardStats {
	stats := DashboardStats{Errors: make(map[string]error)}

	sections := []struct {
		name     string
		endpoint string
		dst      *Payload
	}{
		{"crm", "/crm/stats", &stats.CRM},
		{"deals", "/crm/deals/stats", &stats.Deals},
		{"inventory", "/inventory/stats", &stats.Inventory},
		{"orders", "/orders/stats", &stats.Orders},
		{"cashier", "/cashier/stats", &stats.Cashier},
	}

	for _, s := range sections {
		data, err := c.GetCached(ctx, s.endpoint, nil, ttl)
		if err != nil {
			c.logger.Warn("could not load statistics", slog.String("section", s.name), slog.String("error", err.Error()))
			stats.Errors[s.name] = err
			continue
		}
		*s.dst = data
	}

	return stats
}
