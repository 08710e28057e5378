package main

import (
	"net/http"

	"github.com/josh-kwaku/splitledger/internal/config"
	"github.com/josh-kwaku/splitledger/internal/handler"
	"github.com/josh-kwaku/splitledger/internal/metrics"
	"github.com/josh-kwaku/splitledger/internal/middleware"
	"github.com/josh-kwaku/splitledger/internal/service"
	"github.com/josh-kwaku/splitledger/internal/store"
)

func routes(cfg *config.Config, stores *store.Stores, expenses *service.ExpenseService, balances *service.BalanceService) http.Handler {
	expenseH := handler.NewExpenseHandler(expenses, cfg.DefaultCurrency)
	balanceH := handler.NewBalanceHandler(balances, cfg.DefaultCurrency)
	userH := handler.NewUserHandler(stores.Users)
	healthH := handler.NewHealthHandler(stores.Pinger, cfg.StoreBackend)

	api := http.NewServeMux()
	api.Handle("POST /api/v1/expenses", middleware.Idempotency(stores.Idempotency)(http.HandlerFunc(expenseH.Create)))
	api.HandleFunc("GET /api/v1/expenses", expenseH.List)
	api.HandleFunc("GET /api/v1/expenses/{id}", expenseH.Get)
	api.HandleFunc("PUT /api/v1/expenses/{id}", expenseH.Update)
	api.HandleFunc("DELETE /api/v1/expenses/{id}", expenseH.Delete)
	api.HandleFunc("GET /api/v1/balance", balanceH.Mine)
	api.HandleFunc("GET /api/v1/balance/export.csv", balanceH.ExportCSV)
	api.HandleFunc("GET /api/v1/balance/statement.csv", balanceH.StatementCSV)
	api.HandleFunc("GET /api/v1/users/me", userH.Me)
	api.HandleFunc("GET /api/v1/users/{id}", userH.GetByID)
	api.HandleFunc("GET /api/v1/users/{id}/balance", balanceH.ForUser)

	var apiChain http.Handler = middleware.Metrics(api)
	apiChain = middleware.Auth(cfg.JWTSecret)(apiChain)

	root := http.NewServeMux()
	root.Handle("/api/", apiChain)
	root.HandleFunc("GET /health", healthH.Liveness)
	root.HandleFunc("GET /ready", healthH.Readiness)
	root.Handle("GET /metrics", metrics.Handler())
	root.HandleFunc("GET /docs", handler.ServeDocs("/docs/openapi.yaml"))
	root.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(handler.OpenAPISpec))

	var h http.Handler = root
	h = middleware.Recovery(h)
	h = middleware.Logging(h)
	h = middleware.Tracing(h)
	return h
}
