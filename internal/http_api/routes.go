package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/api/v1/tokens", s.listTokens)
	s.router.GET("/api/v1/auth/x/login", s.authLogin)
	s.router.GET("/api/v1/auth/x/callback", s.authCallback)
	s.router.GET("/api/v1/fees/:username", s.feesInfo)
	s.router.POST("/api/v1/fees/:username/claim", s.feesClaim)
}
