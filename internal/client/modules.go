package client

import (
	"context"
	"fmt"
)

// inventory

func (c *Client) GetProducts(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, "/inventory/products", params)
}

func (c *Client) GetProduct(ctx context.Context, id int64) (Payload, error) {
	return c.Get(ctx, fmt.Sprintf("/inventory/products/%d", id), nil)
}

func (c *Client) CreateProduct(ctx context.Context, product any) (Payload, error) {
	return c.Post(ctx, "/inventory/products", product)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, product any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/inventory/products/%d", id), product)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/inventory/products/%d", id))
}

func (c *Client) GetInventoryStats(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/inventory/stats", nil)
}

// orders

func (c *Client) GetOrders(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, "/orders/orders", params)
}

func (c *Client) GetOrder(ctx context.Context, id int64) (Payload, error) {
	return c.Get(ctx, fmt.Sprintf("/orders/orders/%d", id), nil)
}

func (c *Client) CreateOrder(ctx context.Context, order any) (Payload, error) {
	return c.Post(ctx, "/orders/orders", order)
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, order any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/orders/orders/%d", id), order)
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/orders/orders/%d", id))
}

func (c *Client) GetOrderStats(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/orders/stats", nil)
}

// cashier

func (c *Client) GetPayments(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, "/cashier/payments", params)
}

func (c *Client) CreatePayment(ctx context.Context, payment any) (Payload, error) {
	return c.Post(ctx, "/cashier/payments", payment)
}

func (c *Client) UpdatePayment(ctx context.Context, id int64, payment any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/cashier/payments/%d", id), payment)
}

// ProcessPayment asks the cashier module to charge a payment
func (c *Client) ProcessPayment(ctx context.Context, payment any) (Payload, error) {
	return c.Post(ctx, "/cashier/process", payment)
}

// RefundPayment refunds a completed payment. The request has an empty JSON object body.
func (c *Client) RefundPayment(ctx context.Context, id int64) (Payload, error) {
	return c.Post(ctx, fmt.Sprintf("/cashier/refund/%d", id), struct{}{})
}

func (c *Client) GetCashierStats(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/cashier/stats", nil)
}

// platform

// GetPlatformStatus calls the health endpoint
func (c *Client) GetPlatformStatus(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/health", nil)
}
