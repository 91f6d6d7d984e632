package clicker_client

// Operation names a remote call on the game server.
type Operation string

const (
	OpGetStats          Operation = "get-stats"
	OpClick             Operation = "update"
	OpBuyBot            Operation = "buy-bot"
	OpUpgradeMultiplier Operation = "upgrade-multiplier"
	OpUpgradeBots       Operation = "upgrade-bots"
)

const (
	// JSON-RPC routes live under this prefix, one route per operation
	PathPrefix = "/aaap/clicker/"

	// Connect service exposing the same operations
	ConnectServiceName = "clicker.v1.ClickerService"

	// Liveness endpoint served next to the RPC routes
	HealthEndpoint = "/health"
)

// Operations lists every operation the server exposes.
var Operations = []Operation{
	OpGetStats,
	OpClick,
	OpBuyBot,
	OpUpgradeMultiplier,
	OpUpgradeBots,
}

var connectMethods = map[Operation]string{
	OpGetStats:          "GetStats",
	OpClick:             "Update",
	OpBuyBot:            "BuyBot",
	OpUpgradeMultiplier: "UpgradeMultiplier",
	OpUpgradeBots:       "UpgradeBots",
}

// Path returns the JSON-RPC route for the operation.
func (o Operation) Path() string {
	return PathPrefix + string(o)
}

// Procedure returns the Connect procedure path for the operation.
func (o Operation) Procedure() string {
	return "/" + ConnectServiceName + "/" + connectMethods[o]
}
