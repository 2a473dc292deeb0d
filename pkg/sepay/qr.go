package sepay

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const qrBaseURL = "https://qr.sepay.vn/img"

// QRURL builds the bank-transfer QR image URL. Pure and deterministic: the
// same inputs always yield the same string.
func QRURL(accountNumber, bank string, amount int64, memo string) string {
	v := url.Values{}
	v.Set("acc", accountNumber)
	v.Set("bank", bank)
	v.Set("amount", strconv.FormatInt(amount, 10))
	v.Set("des", memo)
	return qrBaseURL + "?" + v.Encode()
}

// FallbackMemo synthesizes a correlation token for payments that are not
// tied to a stored request id.
func FallbackMemo(now time.Time) string {
	return fmt.Sprintf("Ride%d", now.UnixMilli())
}
