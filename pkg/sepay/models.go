package sepay

import (
	"fmt"
	"strconv"
	"strings"
)

// TransactionListResponse is the ledger's transactions/list payload.
type TransactionListResponse struct {
	Status       int           `json:"status"`
	Error        *string       `json:"error"`
	Messages     Messages      `json:"messages"`
	Transactions []Transaction `json:"transactions"`
}

type Messages struct {
	Success bool `json:"success"`
}

func (r *TransactionListResponse) OK() bool {
	return r.Status == 200 && r.Messages.Success
}

func (r *TransactionListResponse) ErrorMessage() string {
	if r.Error != nil {
		return *r.Error
	}
	return "unknown error"
}

// Transaction is one ledger row. Amounts arrive as decimal strings.
type Transaction struct {
	ID                 string  `json:"id"`
	BankBrandName      string  `json:"bank_brand_name"`
	AccountNumber      string  `json:"account_number"`
	TransactionDate    string  `json:"transaction_date"`
	AmountOut          string  `json:"amount_out"`
	AmountIn           string  `json:"amount_in"`
	Accumulated        string  `json:"accumulated"`
	TransactionContent string  `json:"transaction_content"`
	ReferenceNumber    string  `json:"reference_number"`
	Code               *string `json:"code"`
	SubAccount         *string `json:"sub_account"`
	BankAccountID      string  `json:"bank_account_id"`
}

// AmountInMinor returns the incoming amount normalized to currency minor
// units.
func (t Transaction) AmountInMinor() (int64, error) {
	return ParseAmount(t.AmountIn)
}

// ParseAmount normalizes a ledger decimal string ("20000", "20000.00") to
// int64 minor units. A non-zero fractional part is rejected rather than
// rounded: an amount comparison must be exact or fail.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, found := strings.Cut(s, ".")
	if found {
		if strings.Trim(frac, "0") != "" {
			return 0, fmt.Errorf("amount %q has a fractional part", s)
		}
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return n, nil
}
