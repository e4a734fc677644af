package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Link flow routes
	RouteLinkStart    = "/link/{provider}/start"
	RouteLinkCallback = "/link/{provider}/callback"
	RouteLinkExchange = "/link/{provider}/exchange"

	// Connection management routes
	RouteLinkStatus = "/link/{provider}/status"
	RouteLinkUnlink = "/link/{provider}"

	// Operational routes
	RouteHealthz = "/healthz"
)
