package razorpay

var (
	NewClientWith  = newClient
	TimeoutSeconds = timeoutSeconds
)
