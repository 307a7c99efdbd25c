package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vigil-trading/vigil/internal/observability"
	"github.com/vigil-trading/vigil/internal/solana"
	"github.com/vigil-trading/vigil/internal/storage"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

// AdminHandler exposes the operator surface. Authentication is the
// deployment's concern (reverse proxy / service mesh); the handler itself
// only validates inputs and transition legality.
func (en *Engine) AdminHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /admin/run", func(w http.ResponseWriter, r *http.Request) {
		summary, err := en.RunCycle(r.Context())
		if err != nil {
			if errors.Is(err, ErrCycleInFlight) {
				writeError(w, http.StatusConflict, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		observability.WriteJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("GET /admin/status", func(w http.ResponseWriter, r *http.Request) {
		mint := r.URL.Query().Get("mint")
		if mint == "" {
			writeError(w, http.StatusBadRequest, errors.New("mint query parameter required"))
			return
		}
		e, err := en.GetStatus(r.Context(), solana.Pubkey(mint))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		observability.WriteJSON(w, http.StatusOK, e)
	})

	mux.HandleFunc("GET /admin/safeguard", func(w http.ResponseWriter, r *http.Request) {
		observability.WriteJSON(w, http.StatusOK, en.GetSafeguardStatus())
	})

	mux.HandleFunc("GET /admin/summary", func(w http.ResponseWriter, r *http.Request) {
		summary := en.LastSummary()
		if summary == nil {
			writeError(w, http.StatusNotFound, errors.New("no cycle has run yet"))
			return
		}
		observability.WriteJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("POST /admin/kill", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reason == "" {
			writeError(w, http.StatusBadRequest, errors.New("reason required"))
			return
		}
		en.guard.ActivateKill(r.Context(), body.Reason)
		observability.WriteJSON(w, http.StatusOK, en.GetSafeguardStatus())
	})

	// The trade executor reports resolved candidates back through here;
	// outcomes feed the rolling win-rate window.
	mux.HandleFunc("POST /admin/outcome", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Profitable *bool `json:"profitable"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Profitable == nil {
			writeError(w, http.StatusBadRequest, errors.New("profitable required"))
			return
		}
		en.guard.RecordOutcome(r.Context(), *body.Profitable)
		observability.WriteJSON(w, http.StatusOK, en.GetSafeguardStatus())
	})

	mux.HandleFunc("POST /admin/kill/reset", func(w http.ResponseWriter, r *http.Request) {
		en.ResetKillSwitch(r.Context())
		observability.WriteJSON(w, http.StatusOK, en.GetSafeguardStatus())
	})

	mux.HandleFunc("POST /admin/prune", func(w http.ResponseWriter, r *http.Request) {
		pruned, err := en.UpdatePriorities(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		observability.WriteJSON(w, http.StatusOK, map[string]int{"pruned": pruned})
	})

	mux.HandleFunc("POST /admin/transition", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Mint   string `json:"mint"`
			Target string `json:"target"`
			Kind   string `json:"kind"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if body.Mint == "" || body.Target == "" || body.Reason == "" {
			writeError(w, http.StatusBadRequest, errors.New("mint, target, and reason required"))
			return
		}

		err := en.ManualTransition(r.Context(),
			solana.Pubkey(body.Mint),
			watchlist.Status(body.Target),
			watchlist.RejectionKind(body.Kind),
			body.Reason,
		)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				writeError(w, http.StatusNotFound, err)
			case errors.Is(err, watchlist.ErrInvalidTransition), errors.Is(err, watchlist.ErrCooldownActive):
				writeError(w, http.StatusUnprocessableEntity, err)
			default:
				writeError(w, http.StatusInternalServerError, err)
			}
			return
		}

		e, err := en.GetStatus(r.Context(), solana.Pubkey(body.Mint))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		observability.WriteJSON(w, http.StatusOK, e)
	})

	return mux
}

func writeError(w http.ResponseWriter, code int, err error) {
	observability.WriteJSON(w, code, map[string]string{"error": err.Error()})
}
