package model

// Severity ranks an advisory.
type Severity string

// Advisory severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AdvisoryCode identifies the rule that produced an advisory.
type AdvisoryCode string

// Advisory codes emitted by the recorder, the category registry and the alert engine.
const (
	AdvisoryBudgetExceeded       AdvisoryCode = "budget_exceeded"
	AdvisoryBudgetNearLimit      AdvisoryCode = "budget_near_limit"
	AdvisoryExpensesExceedIncome AdvisoryCode = "expenses_exceed_income"
	AdvisoryExpensesHigh         AdvisoryCode = "expenses_high"
	AdvisoryNegativeBalance      AdvisoryCode = "negative_balance"
	AdvisoryLowReserve           AdvisoryCode = "low_reserve"
	AdvisoryCategoryUsageHigh    AdvisoryCode = "category_usage_high"
	AdvisoryZeroBalance          AdvisoryCode = "zero_balance"
	AdvisoryLowBalance           AdvisoryCode = "low_balance"
	AdvisoryNoAlerts             AdvisoryCode = "no_alerts"
	AdvisoryLimitExceeded        AdvisoryCode = "limit_already_exceeded"
	AdvisoryReassigned           AdvisoryCode = "transactions_reassigned"
)

// Advisory is a non-fatal message emitted alongside a successful operation.
type Advisory struct {
	Code     AdvisoryCode
	Severity Severity
	Category string
	Message  string
}

// HasAdvisory reports whether advisories contains code.
func HasAdvisory(advisories []Advisory, code AdvisoryCode) bool {
	for _, a := range advisories {
		if a.Code == code {
			return true
		}
	}
	return false
}

// Codes lists the codes of advisories in order.
func Codes(advisories []Advisory) []AdvisoryCode {
	codes := make([]AdvisoryCode, len(advisories))
	for i, a := range advisories {
		codes[i] = a.Code
	}
	return codes
}
