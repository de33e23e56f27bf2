package csvconv

// Column schemas for the warehouse-facing CSV tables. Endpoints without an
// entry fall back to a generic union-of-keys layout.
var schemas = map[string][]string{
	"customers": {
		"id", "customer_code", "first_name", "last_name", "email",
		"phone", "mobile", "company_name", "customer_group_id",
		"enable_loyalty", "loyalty_balance", "note", "gender",
		"date_of_birth", "created_at", "updated_at",
	},
	"customer_groups": {"id", "name", "discount_percentage"},
	"products": {
		"id", "source_id", "handle", "sku", "name", "description",
		"brand_id", "supplier_id", "product_type_id", "supply_price",
		"retail_price", "tag_string", "is_active", "track_inventory",
		"created_at", "updated_at",
	},
	"inventory": {
		"id", "product_id", "outlet_id", "quantity_available",
		"reorder_point", "reorder_amount", "updated_at",
	},
	"sales": {
		"id", "source_id", "outlet_id", "register_id", "user_id",
		"customer_id", "invoice_number", "receipt_number", "status",
		"note", "total_price", "total_tax", "total_discount",
		"total_loyalty", "created_at", "updated_at", "sale_date",
	},
	"outlets": {
		"id", "name", "physical_address_1", "physical_address_2",
		"physical_city", "physical_state", "physical_postcode",
		"physical_country_id", "phone", "email", "timezone",
		"default_tax_id", "currency", "currency_symbol",
	},
	"registers": {
		"id", "name", "outlet_id", "receipt_prefix",
		"receipt_suffix", "receipt_number", "is_open",
	},
	"register_sales": {
		"id", "register_id", "opened_at", "closed_at",
		"opening_float", "closing_float", "total_counted",
		"cash_counted", "cash_expected", "cash_difference",
	},
	"users":         {"id", "username", "display_name", "email", "outlet_id", "is_active", "created_at"},
	"suppliers":     {"id", "name", "contact_name", "email", "phone", "address_1", "address_2", "city", "state", "postcode", "country_id"},
	"taxes":         {"id", "name", "rate", "outlet_id"},
	"payment_types": {"id", "name", "outlet_id"},
	"brands":        {"id", "name", "description"},
	"product_types": {"id", "name", "parent_id"},
	"price_books":   {"id", "name", "outlet_id", "customer_group_id", "valid_from", "valid_to", "is_active"},
	"promotions":    {"id", "name", "type", "value", "start_date", "end_date", "is_active"},
	"consignments":  {"id", "outlet_id", "supplier_id", "invoice_number", "consignment_date", "received_at", "total_cost", "status", "type"},
	"gift_cards":    {"id", "number", "balance", "customer_id", "expires_at", "created_at", "status"},
}

var variantColumns = []string{
	"id", "product_id", "name", "sku", "barcode",
	"retail_price", "supply_price", "is_active",
}

var saleItemColumns = []string{
	"id", "sale_id", "product_id", "variant_id", "quantity",
	"price", "cost", "price_total", "discount", "discount_total",
	"tax", "tax_total", "status",
}

var salePaymentColumns = []string{
	"id", "sale_id", "register_id", "payment_type_id",
	"amount", "payment_date",
}
