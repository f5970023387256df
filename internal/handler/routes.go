package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	dualAuth *middleware.DualAuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	structureHandler *FeeStructureHandler,
	ledgerHandler *LedgerHandler,
	paymentHandler *PaymentHandler,
	dashboardHandler *DashboardHandler,
	apiTokenHandler *APITokenHandler,
	receiptHandler *ReceiptHandler,
	wsHandler *WebSocketHandler,
) {
	// API version 1
	api := e.Group("/api/v1")

	// Fee structure catalog (protected, JWT or API token)
	structures := api.Group("/fee-structures")
	structures.Use(dualAuth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	structures.POST("", structureHandler.CreateStructure)
	structures.GET("", structureHandler.ListStructures)
	structures.GET("/:id", structureHandler.GetStructure)
	structures.PUT("/:id", structureHandler.UpdateStructure)
	structures.DELETE("/:id", structureHandler.DeactivateStructure)

	// Fee ledger routes (protected, JWT or API token)
	ledgers := api.Group("/fee-ledgers")
	ledgers.Use(dualAuth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	ledgers.POST("", ledgerHandler.CreateLedger)
	ledgers.GET("", ledgerHandler.ListLedgers)
	// Static paths registered before /:id so Echo routes them first
	ledgers.GET("/dashboard-summary", dashboardHandler.GetSummary)
	ledgers.GET("/collection-trend", dashboardHandler.GetCollectionTrend)
	ledgers.GET("/:id", ledgerHandler.GetLedger)
	ledgers.PATCH("/:id", ledgerHandler.UpdateCorrections)
	ledgers.POST("/:id/payments", paymentHandler.RecordPayment)
	ledgers.POST("/:id/adjustments", paymentHandler.RecordAdjustment)
	ledgers.POST("/:id/receipts", receiptHandler.UploadReceipt)
	ledgers.GET("/:id/receipts/url", receiptHandler.GetReceiptURL)

	// API token management (session auth only; tokens cannot mint tokens)
	apiTokens := api.Group("/api-tokens")
	apiTokens.Use(dualAuth.JWTOnly())
	apiTokens.POST("", apiTokenHandler.CreateAPIToken)
	apiTokens.GET("", apiTokenHandler.GetAPITokens)
	apiTokens.DELETE("/:id", apiTokenHandler.RevokeAPIToken)

	// WebSocket endpoint (token authenticated via query param)
	e.GET("/ws", wsHandler.HandleWS)
}
