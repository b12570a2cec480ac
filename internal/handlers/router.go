package handlers

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sjperalta/village-settlement-api/internal/config"
	"github.com/sjperalta/village-settlement-api/internal/middleware"
)

// NewRouter wires every route under /api/v1.
func NewRouter(h *Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Any authenticated user: residents report payments and read balances
			protected.POST("/payins", h.Payin.Create)
			protected.GET("/payins/:payin_id", h.Payin.Show)
			protected.GET("/invoices", h.Invoice.Index)
			protected.GET("/invoices/:invoice_id", h.Invoice.Show)
			protected.GET("/invoices/:invoice_id/outstanding", h.Invoice.Outstanding)
			protected.GET("/invoices/:invoice_id/credit_notes", h.Invoice.CreditNotes)
			protected.GET("/ledgers/:ledger_id", h.Payin.Ledger)

			// Treasury: everything that moves a balance or reconciles the bank
			treasury := protected.Group("")
			treasury.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTreasurer))
			{
				treasury.POST("/invoices", h.Invoice.Create)
				treasury.GET("/invoices/:invoice_id/verify", h.Invoice.Verify)
				treasury.POST("/invoices/:invoice_id/payments", h.Invoice.ApplyPayment)
				treasury.POST("/invoices/:invoice_id/credit_notes", h.Invoice.CreateCreditNote)

				treasury.POST("/payins/:payin_id/accept", h.Payin.Accept)
				treasury.POST("/payins/:payin_id/reject", h.Payin.Reject)
				treasury.GET("/payins/:payin_id/candidates", h.Payin.Candidates)
				treasury.GET("/payins/:payin_id/promotions", h.Payin.Promotions)

				treasury.GET("/bank_transactions", h.Reconciliation.Transactions)
				treasury.GET("/bank_transactions/:transaction_id", h.Reconciliation.Transaction)
				treasury.POST("/bank_transactions/:transaction_id/match", h.Reconciliation.Match)
				treasury.POST("/bank_transactions/:transaction_id/unmatch", h.Reconciliation.Unmatch)

				treasury.GET("/statements", h.Reconciliation.Imports)
				treasury.POST("/statements/preview", h.Reconciliation.Preview)
				treasury.POST("/statements/:token/confirm", h.Reconciliation.Confirm)
				treasury.POST("/statements/:token/discard", h.Reconciliation.Discard)

				treasury.GET("/promotions", h.Promotion.Index)
				treasury.GET("/audits", h.Audit.Index)
			}

			admin := protected.Group("")
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.POST("/promotions", h.Promotion.Create)
				admin.GET("/jobs/status", h.Job.Status)
				admin.POST("/jobs/:name", h.Job.Trigger)
			}
		}
	}

	return router
}
