package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// Link flow. The callback arrives by provider redirect, so its
	// bearer handling is lenient; a missing identity surfaces as a
	// failed attempt, never a bare 401 in the browser.
	s.RegisterRouteHandler("GET "+RouteLinkStart, ChainMiddleware(s.LinkStartHandler(), s.APIMiddleware(s.RequireBearerAuth())...))
	s.RegisterRouteHandler("GET "+RouteLinkCallback, ChainMiddleware(s.LinkCallbackHandler(), s.APIMiddleware(s.OptionalBearerAuth())...))
	s.RegisterRouteHandler("POST "+RouteLinkExchange, ChainMiddleware(s.LinkExchangeHandler(), s.APIMiddleware(s.RequireBearerAuth())...))

	// Connection management
	s.RegisterRouteHandler("GET "+RouteLinkStatus, ChainMiddleware(s.LinkStatusHandler(), s.APIMiddleware(s.RequireBearerAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteLinkUnlink, ChainMiddleware(s.LinkUnlinkHandler(), s.APIMiddleware(s.RequireBearerAuth())...))

	// Browser preflight requests never match the method-specific
	// patterns above, so OPTIONS gets a catch-all that terminates in
	// CorsMiddleware.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
