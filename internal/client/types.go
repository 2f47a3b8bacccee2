package client

// Envelope is the {success, data, error} wrapper used by most KIT8 module responses.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// =============================================================================
// CRM
// =============================================================================

type Contact struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Position  string `json:"position,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Deal struct {
	ID                int64   `json:"id,omitempty"`
	Title             string  `json:"title"`
	ContactID         int64   `json:"contact_id,omitempty"`
	Value             float64 `json:"value,omitempty"`
	Amount            float64 `json:"amount,omitempty"`
	Stage             string  `json:"stage,omitempty"` // new, in-progress, won, lost
	Probability       int     `json:"probability,omitempty"`
	ExpectedCloseDate string  `json:"expected_close_date,omitempty"`
	CreatedAt         string  `json:"created_at,omitempty"`
	UpdatedAt         string  `json:"updated_at,omitempty"`
}

type StageTotal struct {
	Stage       string  `json:"stage"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

type CRMStats struct {
	Contacts     int          `json:"contacts"`
	Deals        int          `json:"deals"`
	DealsByStage []StageTotal `json:"dealsByStage"`
}

// Revenue sums the amounts of all stages.
func (s CRMStats) Revenue() float64 {
	var total float64
	for _, st := range s.DealsByStage {
		total += st.TotalAmount
	}
	return total
}

type DealStats struct {
	TotalCount   int     `json:"total_count"`
	WonCount     int     `json:"won_count"`
	LostCount    int     `json:"lost_count"`
	TotalValue   float64 `json:"total_value"`
	AverageValue float64 `json:"average_value"`
}

// =============================================================================
// INVENTORY, ORDERS, CASHIER
// =============================================================================

type Product struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	SKU         string  `json:"sku,omitempty"`
	Category    string  `json:"category,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type InventoryStats struct {
	TotalProducts   int     `json:"total_products"`
	TotalValue      float64 `json:"total_value"`
	LowStockCount   int     `json:"low_stock_count"`
	OutOfStockCount int     `json:"out_of_stock_count"`
}

type OrderItem struct {
	ID          int64   `json:"id,omitempty"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total,omitempty"`
}

type Order struct {
	ID              int64       `json:"id,omitempty"`
	ContactID       int64       `json:"contact_id"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"total_amount,omitempty"`
	Status          string      `json:"status,omitempty"`         // new, confirmed, in-progress, shipped, delivered, cancelled
	PaymentStatus   string      `json:"payment_status,omitempty"` // unpaid, paid, refunded, pending
	ShippingAddress string      `json:"shipping_address,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       string      `json:"created_at,omitempty"`
	UpdatedAt       string      `json:"updated_at,omitempty"`
}

type OrderStats struct {
	TotalOrders      int     `json:"total_orders"`
	TotalRevenue     float64 `json:"total_revenue"`
	PendingOrders    int     `json:"pending_orders"`
	ProcessingOrders int     `json:"processing_orders"`
	CompletedOrders  int     `json:"completed_orders"`
}

type Payment struct {
	ID            int64   `json:"id,omitempty"`
	OrderID       int64   `json:"order_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`           // cash, card, transfer
	Status        string  `json:"status,omitempty"`         // pending, completed, failed, refunded
	TransactionID string  `json:"transaction_id,omitempty"` // provider transaction reference
	PaymentDate   string  `json:"payment_date,omitempty"`
}

type CashierStats struct {
	TotalRevenue       float64 `json:"total_revenue"`
	TodaysRevenue      float64 `json:"todays_revenue"`
	TotalTransactions  int     `json:"total_transactions"`
	TodaysTransactions int     `json:"todays_transactions"`
	RefundAmount       float64 `json:"refund_amount"`
}
