package dataset

// OrderColumns maps the logical order fields to physical header names.
type OrderColumns struct {
	OrderID               string `mapstructure:"order_id"`
	PurchaseTime          string `mapstructure:"purchase_time"`
	DeliveredTime         string `mapstructure:"delivered_time"`
	EstimatedDeliveryTime string `mapstructure:"estimated_delivery_time"`
}

// Required lists the columns an orders table must carry.
func (c OrderColumns) Required() []string {
	return []string{c.OrderID, c.PurchaseTime, c.DeliveredTime, c.EstimatedDeliveryTime}
}

// DateColumns lists the columns holding timestamps.
func (c OrderColumns) DateColumns() []string {
	return []string{c.PurchaseTime, c.DeliveredTime, c.EstimatedDeliveryTime}
}

// PaymentColumns maps the logical payment fields to physical header names.
type PaymentColumns struct {
	OrderID      string `mapstructure:"order_id"`
	PaymentType  string `mapstructure:"payment_type"`
	PaymentValue string `mapstructure:"payment_value"`
}

func (c PaymentColumns) Required() []string {
	return []string{c.OrderID, c.PaymentType, c.PaymentValue}
}

// ReviewColumns maps the logical review fields to physical header names.
// ReviewComment is optional: a table without it still validates.
type ReviewColumns struct {
	OrderID       string `mapstructure:"order_id"`
	ReviewScore   string `mapstructure:"review_score"`
	ReviewComment string `mapstructure:"review_comment"`
}

func (c ReviewColumns) Required() []string {
	return []string{c.OrderID, c.ReviewScore}
}

// Layout groups the column mappings of all three datasets.
type Layout struct {
	Orders   OrderColumns   `mapstructure:"orders"`
	Payments PaymentColumns `mapstructure:"payments"`
	Reviews  ReviewColumns  `mapstructure:"reviews"`
}

// DefaultLayout follows the Olist public e-commerce export naming.
func DefaultLayout() Layout {
	return Layout{
		Orders: OrderColumns{
			OrderID:               "order_id",
			PurchaseTime:          "order_purchase_timestamp",
			DeliveredTime:         "order_delivered_customer_date",
			EstimatedDeliveryTime: "order_estimated_delivery_date",
		},
		Payments: PaymentColumns{
			OrderID:      "order_id",
			PaymentType:  "payment_type",
			PaymentValue: "payment_value",
		},
		Reviews: ReviewColumns{
			OrderID:       "order_id",
			ReviewScore:   "review_score",
			ReviewComment: "review_comment_message",
		},
	}
}
