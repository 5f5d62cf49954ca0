package routes

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"omrledger/httpapi/controllers"
	"omrledger/httpapi/middleware"
	"omrledger/httpapi/services"
)

// Register wires the full route table (spec §6 plus the supplemented
// quality/reconstruct/answerkey/intervention operations core.Lifecycle
// exposes beyond that representative table) onto r. metricsRegistry may be
// nil, in which case /metrics is not mounted (tests that build a router
// without a Metrics collector never pay for the promhttp handler).
func Register(r *mux.Router, svc *services.LifecycleService, metricsRegistry *prometheus.Registry) {
	r.Use(middleware.Logger)

	scan := controllers.NewScanController(svc)
	quality := controllers.NewQualityController(svc)
	bubble := controllers.NewBubbleController(svc)
	score := controllers.NewScoreController(svc)
	verify := controllers.NewVerifyController(svc)
	result := controllers.NewResultController(svc)
	recheck := controllers.NewRecheckController(svc)
	answerKey := controllers.NewAnswerKeyController(svc)
	intervention := controllers.NewInterventionController(svc)
	chain := controllers.NewBlockchainController(svc)

	r.HandleFunc("/api/scan/create", scan.Create).Methods("POST")

	r.HandleFunc("/api/quality/assess", quality.Assess).Methods("POST")
	r.HandleFunc("/api/quality/reconstruct", quality.Reconstruct).Methods("POST")

	r.HandleFunc("/api/bubble/create", bubble.Create).Methods("POST")
	r.HandleFunc("/api/score/create", score.Create).Methods("POST")
	r.HandleFunc("/api/verify/create", verify.Create).Methods("POST")

	r.HandleFunc("/api/result/commit", result.Commit).Methods("POST")
	r.HandleFunc("/api/result/{roll}", result.Lookup).Methods("GET")

	r.HandleFunc("/api/recheck/create", recheck.Create).Methods("POST")

	r.HandleFunc("/api/answerkey/upload", answerKey.Upload).Methods("POST")
	r.HandleFunc("/api/answerkey/verify", answerKey.Verify).Methods("POST")
	r.HandleFunc("/api/answerkey/approve", answerKey.Approve).Methods("POST")

	r.HandleFunc("/api/intervention/list", intervention.List).Methods("GET")
	r.HandleFunc("/api/intervention/resolve", intervention.Resolve).Methods("POST")

	r.HandleFunc("/api/blockchain/stats", chain.Stats).Methods("GET")
	r.HandleFunc("/api/blockchain/validate", chain.Validate).Methods("GET")
	r.HandleFunc("/api/blockchain/block/{n}", chain.Block).Methods("GET")

	if metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})).Methods("GET")
	}
}
