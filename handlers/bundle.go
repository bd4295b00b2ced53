package handlers

// HandlerBundle groups the endpoint handlers and the auth settings the routes need.
type HandlerBundle struct {
	Appointments *AppointmentHandler
	Invoices     *InvoiceHandler
	Plans        *SubscriptionHandler
	Payments     *PaymentHandler

	JWTSecret         string
	AdminToken        string
	MaxRequestsPerMin int
}
