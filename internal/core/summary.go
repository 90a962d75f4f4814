package core

// PortfolioSummary aggregates a set of holdings. AssetAllocation maps each
// present investment type to its share of CurrentValue in percent.
type PortfolioSummary struct {
	TotalInvested          float64                    `json:"totalInvested"`
	CurrentValue           float64                    `json:"currentValue"`
	TotalProfitLoss        float64                    `json:"totalProfitLoss"`
	TotalProfitLossPercent float64                    `json:"totalProfitLossPercent"`
	TotalInvestments       int                        `json:"totalInvestments"`
	AssetAllocation        map[InvestmentType]float64 `json:"assetAllocation"`
	ProfitableInvestments  int                        `json:"profitableInvestments"`
	LosingInvestments      int                        `json:"losingInvestments"`
}

// IntegrityIssue describes a record that was skipped because one of its
// fields could not be interpreted.
type IntegrityIssue struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

const (
	IssueKindBill       = "bill"
	IssueKindInvestment = "investment"
)
