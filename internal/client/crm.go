package client

import (
	"context"
	"fmt"
)

// GetContacts lists the CRM contacts
func (c *Client) GetContacts(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/crm/contacts", nil)
}

func (c *Client) CreateContact(ctx context.Context, contact any) (Payload, error) {
	return c.Post(ctx, "/crm/contacts", contact)
}

func (c *Client) UpdateContact(ctx context.Context, id int64, contact any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/crm/contacts/%d", id), contact)
}

func (c *Client) DeleteContact(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/crm/contacts/%d", id))
}

// GetContactDeals lists the deals linked to one contact
func (c *Client) GetContactDeals(ctx context.Context, contactID int64) (Payload, error) {
	return c.Get(ctx, fmt.Sprintf("/crm/contacts/%d/deals", contactID), nil)
}

func (c *Client) GetCRMStats(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/crm/stats", nil)
}

func (c *Client) GetDeals(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/crm/deals", nil)
}

func (c *Client) CreateDeal(ctx context.Context, deal any) (Payload, error) {
	return c.Post(ctx, "/crm/deals", deal)
}

func (c *Client) UpdateDeal(ctx context.Context, id int64, deal any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/crm/deals/%d", id), deal)
}

func (c *Client) DeleteDeal(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/crm/deals/%d", id))
}

func (c *Client) GetDealStats(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/crm/deals/stats", nil)
}
