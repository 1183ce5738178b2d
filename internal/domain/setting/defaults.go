package setting

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/currency"
)

// Setting keys with behaviour attached
const (
	KeyEnableOficialExchangeRate                   = "enable_oficial_exchange_rate"
	KeyReturnOrderChangeAccordingOficialExchange   = "return_order_change_according_oficial_exchange"
	KeyPrintOrderWithPricesAdjustToOficialExchange = "print_order_with_prices_adjust_to_oficial_exchange"
	KeyEnableOngoingOrders                         = "enable_ongoing_orders"
	KeyEconomicCycleAutomated                      = "is-economiccycle-automated"
	KeyPosAllowPendingPayment                      = "pos_allow_pending_payment"
	KeyGeneralCostCurrency                         = "general_cost_currency"
	KeyOnlineShopAreaStock                         = "online_shop_area_stock"
)

// Other built-in settings
const (
	KeyPosDefaultPaymentMethod = "pos_default_payment_method"
	KeyPosPaymentMethods       = "pos_enabled_payment_methods"
	KeyEconomicCycleCloseHour  = "economiccycle_automated_close_hour"
	KeyReceiptFooter           = "receipt_footer_message"
	KeyOnlineShopTheme         = "online_shop_theme"
	KeyDeliveryProviderToken   = "delivery_provider_token"
)

var paymentMethods = []string{"CASH", "CARD", "TRANSFER"}

// DefaultDefinitions returns the settings every business is seeded with
func DefaultDefinitions() []Definition {
	return []Definition{
		{Key: KeyEnableOficialExchangeRate, Type: TypeBool, Default: "false",
			Description: "Use the official exchange rate for foreign currency operations"},
		{Key: KeyReturnOrderChangeAccordingOficialExchange, Type: TypeBool, Default: "false",
			Description: "Return order change computed with the official exchange rate"},
		{Key: KeyPrintOrderWithPricesAdjustToOficialExchange, Type: TypeBool, Default: "false",
			Description: "Print orders with prices adjusted to the official exchange rate"},
		{Key: KeyEnableOngoingOrders, Type: TypeBool, Default: "false",
			Description: "Allow orders to stay open across economic cycles"},
		{Key: KeyEconomicCycleAutomated, Type: TypeBool, Default: "false",
			Description: "Close the economic cycle automatically"},
		{Key: KeyEconomicCycleCloseHour, Type: TypeInt, Default: "0",
			Description: "Hour of day at which the automated economic cycle closes"},
		{Key: KeyPosAllowPendingPayment, Type: TypeBool, Default: "false",
			Description: "Allow point of sale orders with a pending payment"},
		{Key: KeyPosDefaultPaymentMethod, Type: TypeEnum, Default: "CASH", Options: paymentMethods,
			Canonicalize: strings.ToUpper},
		{Key: KeyPosPaymentMethods, Type: TypeList, Default: "CASH,CARD,TRANSFER"},
		{Key: KeyGeneralCostCurrency, Type: TypeString, Default: "CUP", Canonicalize: currency.NormalizeCode,
			Description: "Currency every cost amount is denominated in"},
		{Key: KeyOnlineShopAreaStock, Type: TypeInt, Nullable: true,
			Description: "Stock area that backs the online shop"},
		{Key: KeyOnlineShopTheme, Type: TypeJSON, Default: "{}"},
		{Key: KeyReceiptFooter, Type: TypeString, Default: ""},
		{Key: KeyDeliveryProviderToken, Type: TypeString, Default: "", Sensitive: true},
	}
}

// DefaultRegistry returns the registry of built-in settings and business rules
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range DefaultDefinitions() {
		mustRegister(r.Register(def))
	}

	mustRegister(r.AddCascade(CascadeRule{
		Name: "official-exchange-rate-dependents",
		When: Condition{Key: KeyEnableOficialExchangeRate, Value: "false"},
		Forces: []Change{
			{Key: KeyReturnOrderChangeAccordingOficialExchange, Value: "false"},
			{Key: KeyPrintOrderWithPricesAdjustToOficialExchange, Value: "false"},
		},
	}))

	mustRegister(r.AddGuard(GuardRule{
		Name: "automated-cycle-with-ongoing-orders",
		When: []Condition{
			{Key: KeyEnableOngoingOrders, Value: "true"},
			{Key: KeyEconomicCycleAutomated, Value: "true"},
			{Key: KeyPosAllowPendingPayment, Value: "false"},
		},
		Message: "automated economic cycle closing is incompatible with ongoing orders unless pending payment is allowed",
	}))

	return r
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}
