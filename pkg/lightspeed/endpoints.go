package lightspeed

import (
	"fmt"
	"net/url"
	"strconv"
)

// Export order matters: reference data first, then master data, then
// transactional data, then optional endpoints that may not be enabled for
// every account.
var (
	// CoreEndpoints are expected to exist on every account
	CoreEndpoints = []string{
		"outlets",
		"registers",
		"users",
		"customer_groups",
		"brands",
		"product_types",
		"suppliers",
		"taxes",
		"payment_types",
		"customers",
		"products",
		"inventory",
		"sales",
	}

	// OptionalEndpoints may be absent depending on the account's plan
	OptionalEndpoints = []string{
		"register_sales",
		"price_books",
		"promotions",
		"consignments",
		"gift_cards",
	}
)

// DefaultEndpoints returns the full default export order
func DefaultEndpoints() []string {
	out := make([]string, 0, len(CoreEndpoints)+len(OptionalEndpoints))
	out = append(out, CoreEndpoints...)
	out = append(out, OptionalEndpoints...)
	return out
}

// IsOptional reports whether a missing endpoint should fail soft
func IsOptional(endpoint string) bool {
	for _, e := range OptionalEndpoints {
		if e == endpoint {
			return true
		}
	}
	return false
}

// IsValidEndpoint checks an endpoint name for URL safety
func IsValidEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	for _, ch := range endpoint {
		if !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '_') {
			return false
		}
	}
	return true
}

// BaseURL constructs the API base URL for a retailer domain
func BaseURL(domain, apiVersion string) string {
	return fmt.Sprintf("https://%s/api/%s", domain, apiVersion)
}

// PageURL constructs the URL for one page of an endpoint
func PageURL(baseURL, endpoint string, page, pageSize int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	return fmt.Sprintf("%s/%s?%s", baseURL, endpoint, params.Encode())
}
