package dto

// CustomerResponse is the prefill record.
type CustomerResponse struct {
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	ServiceType   string `json:"service_type"`
	Notes         string `json:"notes"`
}

// CustomerLookupResponse wraps the first match and the number of matches.
type CustomerLookupResponse struct {
	Customer CustomerResponse `json:"customer"`
	Matches  int              `json:"matches"`
}

// UpsertCustomerRequest payload. Blank fields keep stored values.
type UpsertCustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	ServiceType string `json:"service_type"`
	Notes       string `json:"notes"`
}
