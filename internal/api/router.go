package api

import (
	"net/http"

	"github.com/AlexZinkM/escrow-custody/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers groups what the router mounts. Metrics may be nil.
type Handlers struct {
	Escrow  *handler.EscrowHandler
	Chain   *handler.ChainHandler
	Metrics http.Handler
}

// SetupRouter sets up router with handlers
func SetupRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Escrow endpoints
	mux.HandleFunc("/escrow/deals", h.Escrow.OpenDeal)
	mux.HandleFunc("/escrow/deals/deposit", h.Escrow.CheckDeposit)
	mux.HandleFunc("/escrow/deals/release", h.Escrow.Release)
	mux.HandleFunc("/escrow/deals/sweep", h.Escrow.Sweep)

	// Chain and price lookups
	mux.HandleFunc("/chain/balance", h.Chain.GetBalance)
	mux.HandleFunc("/price/convert", h.Chain.Convert)

	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	return mux
}
