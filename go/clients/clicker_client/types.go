package clicker_client

// SubjectParams is the parameter object shared by every per-subject operation.
type SubjectParams struct {
	SubjectID string `json:"subject_id"`
}

// ClickParams carries a click submission. RequestID lets the server drop duplicates.
type ClickParams struct {
	SubjectID  string `json:"subject_id"`
	UnitAmount int    `json:"unit_amount"`
	RequestID  string `json:"request_id"`
}

// Envelope holds the fields every result payload carries.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e Envelope) envelope() Envelope { return e }

type result interface {
	envelope() Envelope
}

type StatsResult struct {
	Envelope
	Balance                 int64   `json:"balance"`
	BotCount                int     `json:"bot_count"`
	BotLevel                int     `json:"bot_level"`
	MultiplierLevel         int     `json:"multiplier_level"`
	ProductionRatePerSecond float64 `json:"production_rate_per_second"`
	ClickMultiplier         float64 `json:"click_multiplier"`
	BotCost                 int64   `json:"bot_cost"`
	BotUpgradeCost          int64   `json:"bot_upgrade_cost"`
	MultiplierCost          int64   `json:"multiplier_cost"`
}

type ClickResult struct {
	Envelope
	NewBalance int64 `json:"new_balance"`
	UnitsAdded int64 `json:"units_added"`
}

type BuyBotResult struct {
	Envelope
	NewBalance              int64   `json:"new_balance"`
	BotCount                int     `json:"bot_count"`
	NextBotCost             int64   `json:"next_bot_cost"`
	ProductionRatePerSecond float64 `json:"production_rate_per_second"`
}

type UpgradeMultiplierResult struct {
	Envelope
	NewBalance         int64   `json:"new_balance"`
	ClickMultiplier    float64 `json:"click_multiplier"`
	MultiplierLevel    int     `json:"multiplier_level"`
	NextMultiplierCost int64   `json:"next_multiplier_cost"`
}

type UpgradeBotsResult struct {
	Envelope
	NewBalance              int64   `json:"new_balance"`
	BotLevel                int     `json:"bot_level"`
	ProductionRatePerSecond float64 `json:"production_rate_per_second"`
	NextBotUpgradeCost      int64   `json:"next_bot_upgrade_cost"`
}

// Failure builds the payload returned for a rejected request.
func Failure(message string) Envelope {
	return Envelope{Success: false, Error: message}
}

// Succeeded is the envelope of an accepted request.
func Succeeded() Envelope {
	return Envelope{Success: true}
}
