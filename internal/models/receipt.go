package models

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// PurchaseReceipt is transient; it is verified and never stored
type PurchaseReceipt struct {
	Platform  Platform `json:"platform"`
	Receipt   string   `json:"receipt"`
	ProductID string   `json:"productId"`
}

// ReceiptVerification is the outcome of a successful verification.
// ExpiresDate is the platform's millisecond timestamp string, if any.
type ReceiptVerification struct {
	Platform    Platform `json:"platform"`
	ProductID   string   `json:"productId"`
	ExpiresDate string   `json:"expiresDate,omitempty"`
}
