package client

const (
	// API prefix
	apiPrefix = "/api"

	// Authentication endpoints
	endpointLogin    = apiPrefix + "/auth/login"
	endpointRegister = apiPrefix + "/auth/register"

	// User endpoints
	endpointUser          = apiPrefix + "/users/%s" // GET
	endpointUpdateProfile = apiPrefix + "/users/update-profile"

	// Chat endpoints
	endpointChat = apiPrefix + "/chat/" // POST send, GET history

	// Notification endpoints
	endpointNotifications         = apiPrefix + "/notifications/" // GET, POST
	endpointNotificationsMarkRead = apiPrefix + "/notifications/mark-read"

	// Payment endpoints
	endpointPaymentPackages    = apiPrefix + "/payments/packages"
	endpointCheckoutSession    = apiPrefix + "/payments/create-checkout-session"
	endpointVerifyPayment      = apiPrefix + "/payments/verify-payment"
	endpointTransactionHistory = apiPrefix + "/payments/transaction-history"
)
